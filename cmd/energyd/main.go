package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
	"github.com/nitinshakthi/energy-tracker/internal/api"
	"github.com/nitinshakthi/energy-tracker/internal/store"
	"github.com/nitinshakthi/energy-tracker/internal/telemetry"
	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

func main() {
	var port int
	var dbPath string
	var cfgFile string
	var mqttBroker string

	rootCmd := &cobra.Command{
		Use:   "energyd",
		Short: "Energy Tracker HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			initConfig(cfgFile)

			if port == 0 {
				port = viper.GetInt("port")
			}
			if dbPath == "" {
				dbPath = viper.GetString("db")
			}
			if dbPath == "" {
				home, _ := os.UserHomeDir()
				dbPath = filepath.Join(home, ".energy-tracker", "energy.db")
				os.MkdirAll(filepath.Dir(dbPath), 0755)
			}
			if mqttBroker == "" {
				mqttBroker = viper.GetString("mqtt.broker")
			}

			// All hour-of-day and "today" boundaries use this zone, never
			// the ambient process zone.
			loc, err := time.LoadLocation(viper.GetString("timezone"))
			if err != nil {
				return fmt.Errorf("loading timezone: %w", err)
			}

			st, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			tr := tracker.New(st, tracker.Config{
				Location: loc,
				Carbon: analytics.CarbonFactors{
					CO2PerKWh:     viper.GetFloat64("carbon.co2_per_kwh"),
					KgPerTreeYear: viper.GetFloat64("carbon.kg_per_tree_year"),
				},
			})

			if mqttBroker != "" {
				bridge, err := telemetry.NewBridge(mqttBroker, "energyd", viper.GetString("mqtt.topic"), tr)
				if err != nil {
					return fmt.Errorf("starting telemetry bridge: %w", err)
				}
				if err := bridge.Start(); err != nil {
					return err
				}
				defer bridge.Stop()
			}

			srv := api.NewServer(tr)

			addr := fmt.Sprintf(":%d", port)
			log.Printf("Energy Tracker server starting on port %d", port)
			log.Printf("Database: %s", dbPath)
			log.Printf("Timezone: %s", loc)

			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (default 8080)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.energy-tracker/config.yaml)")
	rootCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL for meter telemetry (e.g. tcp://localhost:1883)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			configDir := filepath.Join(home, ".energy-tracker")
			os.MkdirAll(configDir, 0755)

			viper.AddConfigPath(configDir)
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	viper.SetDefault("port", 8080)
	viper.SetDefault("timezone", "Asia/Kolkata")
	viper.SetDefault("carbon.co2_per_kwh", analytics.DefaultCO2PerKWh)
	viper.SetDefault("carbon.kg_per_tree_year", analytics.DefaultKgPerTreeYear)
	viper.SetDefault("mqtt.topic", "homes/readings")

	viper.AutomaticEnv()
	viper.ReadInConfig()
}
