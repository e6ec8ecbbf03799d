package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"txscope/internal/bootstrap/logging"
	"txscope/internal/errs"
	"txscope/internal/txn"
)

var (
	registerMoney int
	joinMode      string
	transferFrom  string
	transferTo    string
	transferSum   int
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Member and audit log operations run through transaction scopes",
}

var memberRegisterCmd = &cobra.Command{
	Use:   "register <member-id>",
	Short: "Register a member, retrying with a generated id when taken",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, deps appDeps) error {
		m, err := deps.Members.Register(cmd.Context(), args[0], registerMoney)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s money=%d\n", m.MemberID, m.Money)
		return err
	}),
}

var memberFindCmd = &cobra.Command{
	Use:   "find <member-id>",
	Short: "Show a member",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, deps appDeps) error {
		m, err := deps.Members.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s money=%d\n", m.MemberID, m.Money)
		return err
	}),
}

var memberJoinCmd = &cobra.Command{
	Use:   "join <username>",
	Short: "Store a member and its join log under the chosen propagation layout",
	Long: `Modes:
  separate  member and log in independent transactions
  joined    member and log share one transaction
  swallow   shared transaction, log failure ignored (ends in unexpected rollback)
  recover   log in a REQUIRES_NEW transaction, its failure tolerated

Usernames containing "logException" make the log write fail.

With recover on SQLite the independent log transaction writes before the
member row: SQLite allows one writer at a time, so an outer transaction
that already wrote would block the inner one until busy_timeout expires.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("mode", joinMode))
		username := args[0]

		var err error
		switch strings.ToLower(joinMode) {
		case "separate":
			err = deps.Members.JoinSeparately(ctx, username)
		case "joined":
			err = deps.Members.Join(ctx, username)
		case "swallow":
			err = deps.Members.JoinSwallowingLogFailure(ctx, username)
		case "recover":
			err = deps.Members.JoinRecoveringLogFailure(ctx, username)
		default:
			return fmt.Errorf("unknown join mode %q", joinMode)
		}
		if errors.Is(err, txn.ErrUnexpectedRollback) {
			logging.Warn(ctx, "join rolled back", slog.Any("err", errs.Loggable(err)))
		}

		out := cmd.OutOrStdout()
		_, memberErr := deps.Members.Find(cmd.Context(), username)
		_, logErr := deps.Members.FindLog(cmd.Context(), username)
		if _, werr := fmt.Fprintf(out, "member stored=%t log stored=%t\n", memberErr == nil, logErr == nil); werr != nil {
			return werr
		}
		return err
	}),
}

var memberTransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Move money between two members in one transaction",
	RunE: withApp(func(cmd *cobra.Command, _ []string, deps appDeps) error {
		if err := deps.Members.AccountTransfer(cmd.Context(), transferFrom, transferTo, transferSum); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "transferred %d from %s to %s\n", transferSum, transferFrom, transferTo)
		return err
	}),
}

func init() {
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberRegisterCmd, memberFindCmd, memberJoinCmd, memberTransferCmd)

	memberRegisterCmd.Flags().IntVar(&registerMoney, "money", 0, "Initial balance")

	memberJoinCmd.Flags().StringVar(&joinMode, "mode", "joined", "separate|joined|swallow|recover")

	memberTransferCmd.Flags().StringVar(&transferFrom, "from", "", "Source member id")
	memberTransferCmd.Flags().StringVar(&transferTo, "to", "", "Target member id")
	memberTransferCmd.Flags().IntVar(&transferSum, "amount", 0, "Amount to move")
	_ = memberTransferCmd.MarkFlagRequired("from")
	_ = memberTransferCmd.MarkFlagRequired("to")
	_ = memberTransferCmd.MarkFlagRequired("amount")
}
