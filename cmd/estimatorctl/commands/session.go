package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ru-digital/product-estimator/internal/config"
	"github.com/ru-digital/product-estimator/internal/estimator"
)

type sessionOptions struct {
	productID int64
	enabled   bool
	variantID int64
	flag      string
	reset     bool
	add       bool
	noModal   bool
	pageType  string
	features  []string
	modules   string
	fallback  string
}

func (o *sessionOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&o.productID, "product", 0, "parent product id of the page")
	f.BoolVar(&o.enabled, "enabled", true, "whether the estimator is enabled for the parent product")
	f.Int64Var(&o.variantID, "variant", 0, "variant the shopper selects")
	f.StringVar(&o.flag, "variant-flag", "", "estimator flag carried by the variant (yes/no)")
	f.BoolVar(&o.reset, "reset", false, "clear the variant selection afterwards")
	f.BoolVar(&o.noModal, "no-modal", false, "simulate a page without the estimator modal")
	f.StringVar(&o.pageType, "page-type", "product", "page type used by module conditions")
	f.StringSliceVar(&o.features, "feature", []string{"has_estimator_button"}, "page features set to true (e.g. has_variations)")
	f.StringVar(&o.modules, "modules", "/modules", "base path of the feature modules")
	f.StringVar(&o.fallback, "fallback", config.FromEnv().FallbackURL, "page used when no modal is available (default from ESTIMATOR_FALLBACK_URL)")
	_ = cmd.MarkFlagRequired("product")
}

func (o *sessionOptions) page() estimator.Page {
	pc := estimator.PageContext{"page_type": o.pageType}
	for _, f := range o.features {
		if f = strings.TrimSpace(f); f != "" {
			pc[f] = true
		}
	}
	return estimator.Page{ProductID: o.productID, EnabledByDefault: o.enabled, Context: pc}
}

// run plays the scripted session against the service.
func (o *sessionOptions) run(ctx context.Context, cmd *cobra.Command) error {
	out := &console{out: cmd.OutOrStdout()}
	boot := estimator.NewBootstrapper(client, client, estimator.DefaultModuleGraph(o.modules),
		estimator.WithFallbackURL(o.fallback),
		estimator.WithLogger(logger))
	defer boot.Teardown()

	if err := boot.Init(ctx, o.page(), out.ui(!o.noModal)); err != nil {
		return err
	}
	out.printf("[modules] %s", strings.Join(boot.Registry().Loaded(), ", "))

	if o.variantID != 0 {
		v := estimator.VariantFound{ID: o.variantID}
		if cmd.Flags().Changed("variant-flag") {
			flag := o.flag
			v.EnabledFlag = &flag
		}
		boot.Bus().VariantFound.Publish(v)
		boot.Wait()
	}
	if o.add {
		if err := boot.AddToEstimator(ctx); err != nil {
			return err
		}
	}
	if o.reset {
		boot.Bus().SelectionReset.Publish(estimator.SelectionReset{})
		boot.Wait()
	}
	out.printf("[target] %d", boot.Identity().CurrentTarget())
	return nil
}

// session: initialize a product page, optionally select a variant and reset it.
func sessionCmd() *cobra.Command {
	opts := &sessionOptions{}
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Initialize a product page and replay variant selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.add, "add", false, "press add-to-estimator after the selection")
	return cmd
}

// add: add the page target to the estimator and open the modal on it.
func addCmd() *cobra.Command {
	opts := &sessionOptions{add: true}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product (or the selected variant) to the estimator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

// variation <id>: print the estimator fragment of a variation.
func variationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variation <id>",
		Short: "Fetch the estimator fragment of a variation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscan(args[0], &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid variation id %q", args[0])
			}
			html, err := client.GetVariationEstimator(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			for _, w := range estimator.FindWidgets(html) {
				fmt.Fprintf(cmd.OutOrStdout(), "widget %s product=%d\n", w.Kind, w.ProductID)
			}
			return nil
		},
	}
}
