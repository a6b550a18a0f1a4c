package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/pkg/money"
	"github.com/spf13/cobra"
)

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, cfg, closeFn, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			snapshot, err := repo.LoadCart(ctx)
			if err != nil {
				return fmt.Errorf("load cart: %w", err)
			}
			darkMode, err := repo.LoadDarkMode(ctx)
			if err != nil {
				return fmt.Errorf("load dark mode: %w", err)
			}
			owner, err := repo.LoadOwner(ctx)
			if err != nil {
				return fmt.Errorf("load owner: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:   %s\n", cfg.Storage.Backend)
			fmt.Fprintf(out, "Dark mode: %t\n", darkMode)
			if owner != 0 {
				fmt.Fprintf(out, "Owner:     %d\n", owner)
			}

			if snapshot == nil || len(snapshot.Items) == 0 {
				fmt.Fprintln(out, "Cart is empty")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRODUCT\tNAME\tUNIT PRICE\tQTY\tLINE TOTAL")
			for _, item := range snapshot.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					item.Product.ID,
					item.Product.Name,
					money.Format(item.UnitPrice),
					item.Quantity,
					money.Format(item.UnitPrice*float64(item.Quantity)),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Items: %d  Total: %s\n", snapshot.ItemCount, money.Format(snapshot.Total))
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the stored cart to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, _, closeFn, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			store := service.NewCartStore(nil)
			bridge := service.NewCartBridge(repo, opts.timeout)
			bridge.Restore(ctx, store)
			state := store.GetState()

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			if err := service.NewExportService().WriteXLSX(f, state); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d lines (%d items) to %s\n", len(state.Items), state.ItemCount, args[0])
			return nil
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Replace the stored cart with the lines of an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			snapshot, skipped, err := service.NewExportService().ReadXLSX(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Lines to import: %d (skipped %d)\n", len(snapshot.Items), skipped)

			if !yes {
				fmt.Fprint(out, "Do you want to replace the stored cart? (yes/no): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(answer)
				if answer != "yes" && answer != "y" {
					fmt.Fprintln(out, "Import cancelled.")
					return nil
				}
			}

			// 저장 전에 스토어에서 검증과 합계 보정
			store := service.NewCartStore(nil)
			if !store.Hydrate(snapshot) {
				return fmt.Errorf("%s: %w", args[0], model.ErrMalformedSnapshot)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, _, closeFn, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			state := store.GetState()
			if err := repo.SaveCart(ctx, state.Snapshot()); err != nil {
				return fmt.Errorf("save cart: %w", err)
			}

			fmt.Fprintf(out, "Imported %d lines, total %s\n", len(state.Items), money.Format(state.Total))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored cart and release its owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, _, closeFn, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := repo.DeleteCart(ctx); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			if err := repo.DeleteOwner(ctx); err != nil {
				return fmt.Errorf("release owner: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	}
}
