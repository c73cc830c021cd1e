package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/rank"
	"vinosuggest-engine/internal/store"
)

// userMessage turns store sentinels into the messages users know.
func userMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "Username does not exist!"
	case errors.Is(err, store.ErrDuplicateUsername):
		return "Username already exists!"
	case errors.Is(err, store.ErrEmptyPreferences):
		return "At least one preference must be chosen!"
	case errors.Is(err, store.ErrEmptyUsername):
		return "Please enter a username."
	}
	return err.Error()
}

// parsePrefs reads repeated "Category=Keyword" flags. Category names match
// case-insensitively; keywords outside the suggested list are kept.
func parsePrefs(values []string, warn io.Writer) (domain.Preferences, error) {
	prefs := domain.Preferences{}
	for _, v := range values {
		name, kw, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("--pref %q: want Category=Keyword", v)
		}
		c, found := domain.FindCategory(name)
		if !found {
			return nil, fmt.Errorf("--pref %q: unknown category %q (see the categories command)", v, strings.TrimSpace(name))
		}
		kw = strings.TrimSpace(kw)
		if kw != "" && !c.Allows(kw) {
			fmt.Fprintf(warn, "note: %q is not a suggested keyword for %s\n", kw, c.Name)
		}
		prefs[c.Name] = kw
	}
	return prefs, nil
}

// pyFloat prints whole numbers with a trailing ".0", the way the catalog
// prices were always shown.
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func printPreferences(w io.Writer, p domain.Preferences) {
	for _, c := range domain.Categories {
		fmt.Fprintf(w, "%s: %s\n", c.Name, p[c.Name])
	}
}

func printRecommendations(w io.Writer, recs []rank.Recommendation) {
	for _, r := range recs {
		fmt.Fprintf(w, "\n%s %s from %s (Points: %d, Price: $%s)\n", r.Winery, r.Variety, r.Country, r.Points, pyFloat(r.Price))
		fmt.Fprintf(w, "Description: %s\n", r.Description)
	}
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	var (
		user     string
		prefs    []string
		minPrice float64
		maxPrice float64
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a user's taste preferences and price range",
		Example: `  vinosuggest save -u alice -p "Fruitiness/Flavor Profile=Cherry" -p "Body/Intensity=Rich" --min 10 --max 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parsePrefs(prefs, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := app.Bootstrap(cmd.Context(), opts.appOptions(true))
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("min") {
				minPrice = a.Config.Recommend.DefaultMinPrice
			}
			if !cmd.Flags().Changed("max") {
				maxPrice = a.Config.Recommend.DefaultMaxPrice
			}
			if !domain.ValidPriceRange(minPrice, maxPrice) {
				return fmt.Errorf("invalid price range $%.1f - $%.1f", minPrice, maxPrice)
			}

			err = a.Store.Save(cmd.Context(), domain.PreferenceRecord{
				Username:    user,
				Preferences: p,
				MinPrice:    minPrice,
				MaxPrice:    maxPrice,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Preferences saved successfully!")
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username")
	cmd.Flags().StringArrayVarP(&prefs, "pref", "p", nil, `preference as "Category=Keyword" (repeatable)`)
	cmd.Flags().Float64Var(&minPrice, "min", 0, "minimum price (default from config)")
	cmd.Flags().Float64Var(&maxPrice, "max", 0, "maximum price (default from config)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user's saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Bootstrap(cmd.Context(), opts.appOptions(true))
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Store.Load(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printPreferences(out, rec.Preferences)
			fmt.Fprintf(out, "Price Range: $%.1f - $%.1f\n", rec.MinPrice, rec.MaxPrice)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a user's saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Bootstrap(cmd.Context(), opts.appOptions(true))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Delete(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Preferences cleared successfully!")
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users with saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Bootstrap(cmd.Context(), opts.appOptions(true))
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t$%.1f - $%.1f\n", r.Username, r.MinPrice, r.MaxPrice)
			}
			return nil
		},
	}
}

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend wines for a user's saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Bootstrap(cmd.Context(), opts.appOptions(false))
			if err != nil {
				return err
			}
			defer a.Close()

			rec, recs, err := a.RecommendFor(cmd.Context(), user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cheers, %s!  Welcome to VinoSuggest!\nYour Preferences:\n", rec.Username)
			printPreferences(out, rec.Preferences)
			fmt.Fprintf(out, "Selected Price Range: $%.1f - $%.1f\n", rec.MinPrice, rec.MaxPrice)
			fmt.Fprintf(out, "Here are the top %d wines recommended for you, based on high ratings in user reviews:\n", a.Config.Recommend.Limit)
			printRecommendations(out, recs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List preference categories and their suggested keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range domain.Categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Name, strings.Join(c.Keywords, ", "))
			}
			return nil
		},
	}
}
