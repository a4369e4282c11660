package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withObsrvr/ledger-da-client/client"
	"github.com/withObsrvr/ledger-da-client/retriever"
	"github.com/withObsrvr/ledger-da-client/session"
	"github.com/withObsrvr/ledger-da-client/transition"
)

func newCreateAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-account NAME BALANCE",
		Short: "Create an account with an initial balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid balance %q: %w", args[1], err)
			}

			batch, err := transition.BuildCreateAccount(args[0], balance)
			if err != nil {
				return err
			}

			result, err := newClient().ApplyTransition(cmd.Context(), batch)
			if err != nil {
				return fmt.Errorf("failed to apply transition: %w", err)
			}

			printResult(args[0]+" created", result)
			return nil
		},
	}
}

func newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer FROM TO AMOUNT",
		Short: "Transfer between accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}

			c := newClient()
			batch, err := transition.BuildTransfer(cmd.Context(), c, args[0], args[1], amount)
			if err != nil {
				return err
			}

			result, err := c.ApplyTransition(cmd.Context(), batch)
			if err != nil {
				return fmt.Errorf("failed to apply transition: %w", err)
			}

			printResult(fmt.Sprintf("%s -> %s: %d", args[0], args[1], amount), result)
			return nil
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance NAME",
		Short: "Show an account's balance, with its inclusion proof summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := transition.AccountKey(args[0])
			value, proof, root, err := newClient().GetValueWithProof(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", key, err)
			}

			account := transition.DecodeAccount(value)
			if account == nil {
				return fmt.Errorf("account %s does not exist", args[0])
			}

			fmt.Printf("Account:  %s\n", args[0])
			fmt.Printf("Balance:  %d\n", account.Balance)
			fmt.Printf("Nonce:    %d\n", account.Nonce)
			fmt.Printf("Root:     %s\n", root)
			fmt.Printf("Proof:    %d siblings\n", len(proof.Siblings))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the node's latest root and availability sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()

			healthy, err := c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("node unreachable: %w", err)
			}

			root, err := c.LatestRoot(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch latest root: %w", err)
			}

			status, err := c.SyncStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch sync status: %w", err)
			}

			fmt.Printf("Healthy:          %v\n", healthy)
			fmt.Printf("Transitions:      %d\n", root.TransitionIndex)
			fmt.Printf("Latest root:      %s\n", status.LatestRoot)
			fmt.Printf("Celestia enabled: %v\n", status.CelestiaEnabled)
			if status.LastCelestiaHeight != nil {
				fmt.Printf("Last DA height:   %d\n", *status.LastCelestiaHeight)
			} else {
				fmt.Printf("Last DA height:   none\n")
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the node's transition history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().History(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No transitions yet.")
				return nil
			}
			for _, e := range entries {
				published := "unpublished"
				if e.CelestiaHeight != nil {
					published = fmt.Sprintf("height %d", *e.CelestiaHeight)
				}
				fmt.Printf("seq %-4d root %s  %s\n", e.Sequence, e.Root, published)
			}
			return nil
		},
	}
}

func newTransitionCmd() *cobra.Command {
	var (
		height      uint64
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Retrieve a published transition record by availability-network height",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := retriever.New(newClient(),
				retriever.WithLogger(logger),
				retriever.WithMaxAttempts(maxAttempts),
			)
			r.Select(cmd.Context(), height)

			snap, err := r.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if snap.State == retriever.StateFailed {
				return errors.New(snap.Message)
			}

			printRecord(snap.Record)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&height, "height", 0, "availability-network height to retrieve")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "override the number of fetch attempts")
	cmd.MarkFlagRequired("height")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var fromHeight, toHeight uint64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check root-chain continuity of published transitions in a height range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if toHeight < fromHeight {
				return fmt.Errorf("invalid range: to height %d is below from height %d", toHeight, fromHeight)
			}

			records, err := newClient().TransitionRange(cmd.Context(), fromHeight, toHeight)
			if err != nil {
				return fmt.Errorf("failed to fetch transitions: %w", err)
			}
			if len(records) == 0 {
				fmt.Printf("No published transitions in heights %d..%d.\n", fromHeight, toHeight)
				return nil
			}

			problems := auditRecords(records)
			fmt.Printf("Audited %d transitions (heights %d..%d).\n", len(records), fromHeight, toHeight)
			if len(problems) == 0 {
				fmt.Println("Root chain is continuous.")
				return nil
			}
			for _, p := range problems {
				fmt.Printf("  %s\n", p)
			}
			return fmt.Errorf("audit found %d problem(s)", len(problems))
		},
	}
	cmd.Flags().Uint64Var(&fromHeight, "from", 0, "first availability-network height")
	cmd.Flags().Uint64Var(&toHeight, "to", 0, "last availability-network height")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

// auditRecords orders records by sequence and reports sequence gaps and
// root-chain discontinuities. Proofs are not verified here; the chain of
// roots is checkable without any proving machinery.
func auditRecords(records []client.TransitionRecord) []string {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Sequence < records[j].Sequence
	})

	var problems []string
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.Sequence != prev.Sequence+1 {
			problems = append(problems, fmt.Sprintf(
				"sequence gap: %d follows %d", cur.Sequence, prev.Sequence))
		}
		if cur.PrevRoot != prev.NewRoot {
			problems = append(problems, fmt.Sprintf(
				"root mismatch at sequence %d: prev_root %s does not match preceding new_root %s",
				cur.Sequence, cur.PrevRoot, prev.NewRoot))
		}
	}
	return problems
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted account and transfer sequence against the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), newClient())
		},
	}
}

func runDemo(ctx context.Context, c *client.Client) error {
	tracker := session.NewTracker()
	suffix := time.Now().Unix()
	alice := fmt.Sprintf("alice-%d", suffix)
	bob := fmt.Sprintf("bob-%d", suffix)

	for _, step := range []struct {
		name    string
		balance uint64
	}{
		{alice, 1000},
		{bob, 500},
	} {
		batch, err := transition.BuildCreateAccount(step.name, step.balance)
		if err != nil {
			return err
		}
		result, err := c.ApplyTransition(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", step.name, err)
		}
		tracker.RecordAccount(step.name, step.balance, result)
		printResult(step.name+" created", result)
	}

	for _, step := range []struct {
		from, to string
		amount   uint64
	}{
		{alice, bob, 250},
		{bob, alice, 100},
	} {
		batch, err := transition.BuildTransfer(ctx, c, step.from, step.to, step.amount)
		if err != nil {
			return err
		}
		result, err := c.ApplyTransition(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to transfer: %w", err)
		}
		tracker.RecordTransfer(step.from, step.to, step.amount, result)
		printResult(fmt.Sprintf("%s -> %s: %d", step.from, step.to, step.amount), result)
	}

	fmt.Println("\nSession summary:")
	for _, a := range tracker.Accounts() {
		line := fmt.Sprintf("  created %s with %d (seq %d)", a.Name, a.InitialBalance, a.Sequence)
		if h, ok := tracker.PublishedHeight(a.Sequence); ok {
			line += fmt.Sprintf(", published at height %d", h)
		}
		fmt.Println(line)
	}
	for _, t := range tracker.Transfers() {
		line := fmt.Sprintf("  transferred %d from %s to %s (seq %d)", t.Amount, t.From, t.To, t.Sequence)
		if h, ok := tracker.PublishedHeight(t.Sequence); ok {
			line += fmt.Sprintf(", published at height %d", h)
		}
		fmt.Println(line)
	}

	for _, name := range []string{alice, bob} {
		value, err := c.GetValue(ctx, transition.AccountKey(name))
		if err != nil {
			return fmt.Errorf("failed to read back %s: %w", name, err)
		}
		if account := transition.DecodeAccount(value); account != nil {
			fmt.Printf("  %s: balance %d, nonce %d\n", name, account.Balance, account.Nonce)
		}
	}

	logger.Info("demo completed",
		zap.Int("accounts", len(tracker.Accounts())),
		zap.Int("transfers", len(tracker.Transfers())),
	)
	return nil
}

func printResult(what string, result *client.TransitionResult) {
	fmt.Printf("Applied:    %s\n", what)
	fmt.Printf("Sequence:   %d\n", result.Sequence)
	fmt.Printf("Prev root:  %s\n", result.PrevRoot)
	fmt.Printf("New root:   %s\n", result.NewRoot)
	fmt.Printf("Proof size: %d bytes\n", result.ProofSizeBytes)
	if result.CelestiaHeight != nil {
		fmt.Printf("Published:  height %d\n", *result.CelestiaHeight)
	} else {
		fmt.Printf("Published:  pending\n")
	}
}

func printRecord(r *client.TransitionRecord) {
	fmt.Printf("Sequence:    %d\n", r.Sequence)
	fmt.Printf("Prev root:   %s\n", r.PrevRoot)
	fmt.Printf("New root:    %s\n", r.NewRoot)
	fmt.Printf("DA height:   %d\n", r.CelestiaHeight)
	fmt.Printf("Program:     %s\n", r.ProgramHash)
	fmt.Printf("Proof size:  %d bytes\n", r.ProofSizeBytes)
	fmt.Printf("Public in:   %s\n", r.PublicInputs)
}
