package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
	"github.com/nitinshakthi/energy-tracker/internal/store"
	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

var (
	cfgFile string
	dbPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "energy-tracker",
		Short: "Energy Tracker - per-device power tracking with tariff-aware costs",
		Long: `Energy Tracker records per-device power readings, prices them against
your peak/off-peak tariff schedule, and rolls them up into dashboards,
heatmaps and device histories.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.energy-tracker/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.energy-tracker/energy.db)")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(homesCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(heatmapCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".energy-tracker")
		os.MkdirAll(configDir, 0755)

		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("timezone", "Asia/Kolkata")
	viper.SetDefault("carbon.co2_per_kwh", analytics.DefaultCO2PerKWh)
	viper.SetDefault("carbon.kg_per_tree_year", analytics.DefaultKgPerTreeYear)

	viper.AutomaticEnv()
	viper.ReadInConfig()

	if dbPath == "" {
		dbPath = viper.GetString("db")
	}
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		dbPath = filepath.Join(home, ".energy-tracker", "energy.db")
	}
}

// openTracker opens the store and builds the service with the configured
// timezone and carbon factors.
func openTracker() (*store.Store, *tracker.Tracker, error) {
	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading timezone: %w", err)
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	tr := tracker.New(st, tracker.Config{
		Location: loc,
		Carbon: analytics.CarbonFactors{
			CO2PerKWh:     viper.GetFloat64("carbon.co2_per_kwh"),
			KgPerTreeYear: viper.GetFloat64("carbon.kg_per_tree_year"),
		},
	})
	return st, tr, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file to $HOME/.energy-tracker/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path := filepath.Join(home, ".energy-tracker", "config.yaml")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			content := fmt.Sprintf(`port: 8080
timezone: Asia/Kolkata
db: %s
carbon:
  co2_per_kwh: %.2f
  kg_per_tree_year: %.2f
mqtt:
  broker: ""
  topic: homes/readings
`, filepath.Join(home, ".energy-tracker", "energy.db"),
				analytics.DefaultCO2PerKWh, analytics.DefaultKgPerTreeYear)

			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user with a home, devices and a week of readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, tr, err := openTracker()
			if err != nil {
				return err
			}
			defer st.Close()

			user := &tracker.User{
				ID:     uuid.NewString(),
				Name:   name,
				Email:  email,
				APIKey: uuid.NewString(),
				Tariff: tracker.DefaultTariff(),
			}
			if err := st.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("creating user: %w", err)
			}

			home, err := tr.CreateHome(ctx, user, tracker.HomeInput{Name: "My Home", Address: "12 MG Road"})
			if err != nil {
				return err
			}

			rooms := []struct {
				room    tracker.RoomInput
				devices []tracker.DeviceInput
			}{
				{
					room: tracker.RoomInput{Name: "Bedroom", Category: tracker.RoomBedroom},
					devices: []tracker.DeviceInput{
						{Name: "Air Conditioner", Category: tracker.DeviceHVAC, Wattage: 1500},
						{Name: "Ceiling Light", Category: tracker.DeviceLighting, Wattage: 60},
					},
				},
				{
					room: tracker.RoomInput{Name: "Kitchen", Category: tracker.RoomKitchen},
					devices: []tracker.DeviceInput{
						{Name: "Refrigerator", Category: tracker.DeviceAppliance, Wattage: 150},
					},
				},
				{
					room: tracker.RoomInput{Name: "Living Room", Category: tracker.RoomLivingArea},
					devices: []tracker.DeviceInput{
						{Name: "Television", Category: tracker.DeviceEntertainment, Wattage: 120},
					},
				},
			}

			for _, r := range rooms {
				home, err = tr.AddRoom(ctx, home.ID, user, r.room)
				if err != nil {
					return err
				}
				roomID := home.Rooms[len(home.Rooms)-1].ID
				for _, d := range r.devices {
					home, err = tr.AddDevice(ctx, home.ID, roomID, user, d)
					if err != nil {
						return err
					}
				}
			}

			// A week of hourly readings per device, scaled to its wattage.
			var payloads []tracker.ReadingPayload
			now := time.Now()
			for _, room := range home.Rooms {
				for _, device := range room.Devices {
					for h := 0; h < 7*24; h += 3 {
						ts := now.Add(-time.Duration(h) * time.Hour)
						watts := device.Wattage * (0.5 + rand.Float64()*0.5)
						payloads = append(payloads, tracker.ReadingPayload{
							DeviceID:    device.ID,
							RoomID:      room.ID,
							Consumption: watts * 3 / 1000, // kWh over the 3h gap
							Watts:       watts,
							Timestamp:   &ts,
						})
					}
				}
			}
			if _, err := tr.IngestBatch(ctx, home.ID, user, payloads); err != nil {
				return err
			}

			alert := &tracker.Alert{
				ID:             uuid.NewString(),
				HomeID:         home.ID,
				Type:           tracker.AlertRecommendation,
				Severity:       tracker.SeverityMedium,
				Title:          "Shift AC usage off-peak",
				Message:        "Most AC consumption lands in peak hours.",
				Recommendation: "Pre-cool the bedroom before 18:00 to avoid peak rates.",
				CreatedAt:      now,
			}
			if err := st.InsertAlert(ctx, alert); err != nil {
				return fmt.Errorf("creating alert: %w", err)
			}

			fmt.Printf("Seeded user %s\n", user.Email)
			fmt.Printf("  API key: %s\n", user.APIKey)
			fmt.Printf("  Home ID: %s (%d rooms, %d readings)\n", home.ID, len(home.Rooms), len(payloads))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Demo User", "user name")
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "user email")

	return cmd
}

func homesCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "homes",
		Short: "List homes owned by the given API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, tr, err := openTracker()
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := tr.Authenticate(ctx, apiKey)
			if err != nil {
				return err
			}
			homes, err := tr.ListHomes(ctx, user)
			if err != nil {
				return err
			}
			return printJSON(homes)
		},
	}

	cmd.Flags().StringVarP(&apiKey, "key", "k", "", "API key")
	cmd.MarkFlagRequired("key")

	return cmd
}

func dashboardCmd() *cobra.Command {
	var apiKey, homeID, period string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard snapshot for a home",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, tr, err := openTracker()
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := tr.Authenticate(ctx, apiKey)
			if err != nil {
				return err
			}
			snap, err := tr.Dashboard(ctx, homeID, user, period)
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}

	cmd.Flags().StringVarP(&apiKey, "key", "k", "", "API key")
	cmd.Flags().StringVar(&homeID, "home", "", "home ID")
	cmd.Flags().StringVarP(&period, "period", "P", "today", "period (today, week, month)")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("home")

	return cmd
}

func heatmapCmd() *cobra.Command {
	var apiKey, homeID, month string

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print the daily consumption heatmap for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, tr, err := openTracker()
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := tr.Authenticate(ctx, apiKey)
			if err != nil {
				return err
			}
			buckets, err := tr.Heatmap(ctx, homeID, user, month)
			if err != nil {
				return err
			}
			return printJSON(buckets)
		},
	}

	cmd.Flags().StringVarP(&apiKey, "key", "k", "", "API key")
	cmd.Flags().StringVar(&homeID, "home", "", "home ID")
	cmd.Flags().StringVarP(&month, "month", "m", time.Now().Format("2006-01"), "month (YYYY-MM)")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("home")

	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
