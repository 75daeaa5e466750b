package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/floraxhq/florax/internal/adapters/db/sqlite"
	httpadapter "github.com/floraxhq/florax/internal/adapters/http"
	rpcadapter "github.com/floraxhq/florax/internal/adapters/rpcjson"
	"github.com/floraxhq/florax/internal/application"
	"github.com/floraxhq/florax/internal/domain"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "florax",
		Usage: "Irrigation dashboard server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			dashboardCommand(),
			gardensCommand(),
			zonesCommand(),
			sensorsCommand(),
			irrigationCommand(),
			waterCommand(),
			alertsCommand(),
			tanksCommand(),
			valvesCommand(),
			auditCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, serverConfig{Addr: ":8080", RPCSocket: "/tmp/florax.sock", DBPath: "florax.db"})
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

type serverConfig struct {
	Addr      string `yaml:"addr"`
	RPCSocket string `yaml:"rpc_socket"`
	DBPath    string `yaml:"db_path"`
}

func loadServerConfig(path string) (serverConfig, error) {
	cfg := serverConfig{Addr: ":8080", RPCSocket: "/tmp/florax.sock", DBPath: "florax.db"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return serverConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return serverConfig{}, err
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RPCSocket == "" {
		cfg.RPCSocket = "/tmp/florax.sock"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "florax.db"
	}
	return cfg, nil
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file path"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadServerConfig(c.String("config"))
			if err != nil {
				return err
			}
			// Flags win over the config file.
			if c.IsSet("addr") {
				cfg.Addr = c.String("addr")
			}
			if c.IsSet("rpc-socket") {
				cfg.RPCSocket = c.String("rpc-socket")
			}
			if c.IsSet("db-path") {
				cfg.DBPath = c.String("db-path")
			}
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg serverConfig) error {
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewDashboardRepository(db)
	service := application.NewDashboardService(repo)

	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.RPCSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "phone"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						UserID uint   `json:"user_id"`
						Email  string `json:"email"`
					}
					if err := doRegister(ctx, cfg, c.String("name"), c.String("email"), c.String("password"), c.String("phone"), &out); err != nil {
						return err
					}
					fmt.Printf("registered %s (user #%d)\n", out.Email, out.UserID)
					return nil
				},
			},
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds"},
					&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080"},
					&cli.StringFlag{Name: "socket", Value: "/tmp/florax.sock"},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out struct {
						Token string `json:"token"`
						Email string `json:"email"`
					}
					err := doLogin(ctx, cfg, c.String("email"), c.String("password"), c.String("token-name"), &out)
					if err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID    uint   `json:"id"`
						Name  string `json:"name"`
						Email string `json:"email"`
						Role  string `json:"role"`
					}
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", uintToString(out.ID)}, {"name", out.Name}, {"email", out.Email}, {"role", out.Role}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Revoke the server-side token and clear local CLI auth",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
			{
				Name:  "forgot-password",
				Usage: "Request a password reset token",
				Flags: []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						OK bool `json:"ok"`
					}
					if err := doForgotPassword(ctx, cfg, c.String("email"), &out); err != nil {
						return err
					}
					fmt.Println("if the account exists, a reset token has been issued")
					return nil
				},
			},
			{
				Name:  "reset-password",
				Usage: "Reset password with a token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "new-password", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doResetPassword(ctx, cfg, c.String("token"), c.String("new-password"), nil); err != nil {
						return err
					}
					fmt.Println("password updated")
					return nil
				},
			},
		},
	}
}

func dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Dashboard commands",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the full per-garden dashboard",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.DashboardView
					if err := doDashboardGet(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printDashboard(out)
					return nil
				},
			},
			{
				Name:  "summary",
				Usage: "Show cross-garden aggregate statistics",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.DashboardSummaryView
					if err := doDashboardSummary(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSummary(out)
					return nil
				},
			},
		},
	}
}

func gardensCommand() *cli.Command {
	return &cli.Command{
		Name:  "gardens",
		Usage: "Garden commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List gardens",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []application.GardenView
					if err := doGardensList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printGardens(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show a garden with its zones and alerts",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.GardenView
					if err := doGardensGet(ctx, cfg, c.Uint("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printGardens([]application.GardenView{out})
					fmt.Println()
					printZones(out.Zones)
					return nil
				},
			},
		},
	}
}

func zonesCommand() *cli.Command {
	return &cli.Command{
		Name:  "zones",
		Usage: "Zone commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List zones with derived status",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runZoneList(ctx, c, doZonesList)
				},
			},
			{
				Name:  "alert",
				Usage: "List zones in ALERT status",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runZoneList(ctx, c, func(ctx context.Context, cfg cliConfig, out any) error {
						return doZonesByStatus(ctx, cfg, "alert", out)
					})
				},
			},
			{
				Name:  "active",
				Usage: "List zones in ACTIVE status",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runZoneList(ctx, c, func(ctx context.Context, cfg cliConfig, out any) error {
						return doZonesByStatus(ctx, cfg, "active", out)
					})
				},
			},
			{
				Name:  "get",
				Usage: "Show a single zone",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.ZoneView
					if err := doZonesGet(ctx, cfg, c.Uint("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printZones([]application.ZoneView{out})
					return nil
				},
			},
		},
	}
}

func runZoneList(ctx context.Context, c *cli.Command, fetch func(context.Context, cliConfig, any) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var out []application.ZoneView
	if err := fetch(ctx, cfg, &out); err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	printZones(out)
	return nil
}

func sensorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sensors",
		Usage: "Sensor commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List sensors with latest readings",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runSensorList(ctx, c, doSensorsList)
				},
			},
			{
				Name:  "faulty",
				Usage: "List faulty and inactive sensors",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runSensorList(ctx, c, doSensorsFaulty)
				},
			},
		},
	}
}

func runSensorList(ctx context.Context, c *cli.Command, fetch func(context.Context, cliConfig, any) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var out []application.SensorView
	if err := fetch(ctx, cfg, &out); err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	printSensors(out)
	return nil
}

func irrigationCommand() *cli.Command {
	windowAction := func(window string) func(context.Context, *cli.Command) error {
		return func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []application.IrrigationLogView
			if err := doIrrigationWindow(ctx, cfg, window, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printLogs(out)
			return nil
		}
	}
	jsonFlag := []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}}
	return &cli.Command{
		Name:  "irrigation",
		Usage: "Irrigation log commands",
		Commands: []*cli.Command{
			{
				Name:  "today",
				Usage: "Logs started since local midnight",
				Flags: jsonFlag,
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []application.IrrigationLogView
					if err := doIrrigationToday(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLogs(out)
					return nil
				},
			},
			{Name: "weekly", Usage: "Logs from the trailing 7-day window", Flags: jsonFlag, Action: windowAction("weekly")},
			{Name: "monthly", Usage: "Logs since the first of the month", Flags: jsonFlag, Action: windowAction("monthly")},
			{
				Name:  "recent",
				Usage: "Most recent logs across all gardens",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []application.IrrigationLogView
					if err := doIrrigationRecent(ctx, cfg, c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLogs(out)
					return nil
				},
			},
		},
	}
}

func waterCommand() *cli.Command {
	usageAction := func(window string) func(context.Context, *cli.Command) error {
		return func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out struct {
				TotalWaterUsed float64 `json:"total_water_used"`
			}
			if err := doWaterUsage(ctx, cfg, window, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			fmt.Printf("%.1f\n", out.TotalWaterUsed)
			return nil
		}
	}
	jsonFlag := []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}}
	return &cli.Command{
		Name:  "water",
		Usage: "Water usage commands",
		Commands: []*cli.Command{
			{Name: "today", Usage: "Water used since local midnight", Flags: jsonFlag, Action: usageAction("today")},
			{Name: "weekly", Usage: "Water used in the trailing 7-day window", Flags: jsonFlag, Action: usageAction("weekly")},
			{Name: "monthly", Usage: "Water used since the first of the month", Flags: jsonFlag, Action: usageAction("monthly")},
		},
	}
}

func alertsCommand() *cli.Command {
	listAction := func(fetch func(context.Context, cliConfig, any) error) func(context.Context, *cli.Command) error {
		return func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []application.AlertView
			if err := fetch(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printAlerts(out)
			return nil
		}
	}
	jsonFlag := []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}}
	return &cli.Command{
		Name:  "alerts",
		Usage: "Alert commands",
		Commands: []*cli.Command{
			{Name: "active", Usage: "List active alerts", Flags: jsonFlag, Action: listAction(doAlertsActive)},
			{Name: "resolved-today", Usage: "List alerts resolved today", Flags: jsonFlag, Action: listAction(doAlertsResolvedToday)},
			{
				Name:  "recent",
				Usage: "Most recent alerts across all gardens",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []application.AlertView
					if err := doAlertsRecent(ctx, cfg, c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAlerts(out)
					return nil
				},
			},
			{
				Name:  "count-by-type",
				Usage: "Active alert counts per type",
				Flags: jsonFlag,
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out map[string]int
					if err := doAlertsCountByType(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAlertCounts(out)
					return nil
				},
			},
			{
				Name:  "resolve",
				Usage: "Mark an alert resolved",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.AlertView
					if err := doAlertsResolve(ctx, cfg, c.Uint("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAlerts([]application.AlertView{out})
					return nil
				},
			},
		},
	}
}

func tanksCommand() *cli.Command {
	listAction := func(fetch func(context.Context, cliConfig, any) error) func(context.Context, *cli.Command) error {
		return func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []application.WaterTankView
			if err := fetch(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printTanks(out)
			return nil
		}
	}
	jsonFlag := []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}}
	return &cli.Command{
		Name:  "tanks",
		Usage: "Water tank commands",
		Commands: []*cli.Command{
			{Name: "list", Usage: "List tanks with fill percentage", Flags: jsonFlag, Action: listAction(doTanksList)},
			{Name: "low", Usage: "List tanks running low", Flags: jsonFlag, Action: listAction(doTanksLow)},
		},
	}
}

func valvesCommand() *cli.Command {
	listAction := func(fetch func(context.Context, cliConfig, any) error) func(context.Context, *cli.Command) error {
		return func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []application.ValveView
			if err := fetch(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printValves(out)
			return nil
		}
	}
	jsonFlag := []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}}
	return &cli.Command{
		Name:  "valves",
		Usage: "Valve commands",
		Commands: []*cli.Command{
			{Name: "list", Usage: "List valves", Flags: jsonFlag, Action: listAction(doValvesList)},
			{Name: "open", Usage: "List currently open valves", Flags: jsonFlag, Action: listAction(doValvesOpen)},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit logs",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.AuditLog
					if err := doAuditList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAuditLogs(out)
					return nil
				},
			},
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
