package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"parkfinder/internal/config"
	"parkfinder/internal/logger"
	"parkfinder/internal/model"
	"parkfinder/internal/repository"
	"parkfinder/internal/service"
)

// Create the search command
func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "List carparks whose address contains text, with free lots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, zl, err := newController(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()

			controller.SetQuery(cmd.Context(), args[0])
			if err := controller.Settle(cmd.Context()); err != nil {
				return err
			}
			state := controller.State()
			return render(cmd, state, func(w io.Writer) {
				if len(state.Matches) == 0 {
					fmt.Fprintln(w, "No matching carparks.")
					return
				}
				for _, f := range state.Matches {
					lots, ok := state.MatchAvailability[f.ID]
					count := "-"
					if ok {
						count = lots.String()
					}
					fmt.Fprintf(w, "%-8s %-8s %s\n", f.ID, count, f.Address)
				}
			})
		},
	}
}

// Create the check command
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <address>",
		Short: "Check live availability at one carpark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, zl, err := newController(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()

			state := controller.Check(cmd.Context(), args[0])
			return render(cmd, state, func(w io.Writer) {
				f := state.SelectedFacility
				fmt.Fprintf(w, "%s %s: %d lots available\n", f.ID, f.Address, *state.SelectedAvailability)
			})
		},
	}
}

// Create the route command
func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <address>",
		Short: "Check a carpark and compute a driving route to it",
		Long: "Checks the carpark at <address>, then routes from --from when given, otherwise\n" +
			"from the position in --lat/--lng standing in for device location.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := deviceFromFlags(cmd)
			if err != nil {
				return err
			}
			controller, zl, err := newController(cmd, device)
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()

			ctx := cmd.Context()
			state := controller.Check(ctx, args[0])
			if state.Check == model.Checked {
				from, _ := cmd.Flags().GetString("from")
				if from != "" {
					// A typed origin routes on its own once set
					controller.SetOrigin(ctx, from)
					if err := controller.Settle(ctx); err != nil {
						return err
					}
					state = controller.State()
				} else {
					state = controller.RequestRoute(ctx)
				}
			}

			return render(cmd, state, func(w io.Writer) {
				f := state.SelectedFacility
				fmt.Fprintf(w, "%s %s: %d lots available\n", f.ID, f.Address, *state.SelectedAvailability)
				fmt.Fprintf(w, "Route from %s, %d points\n", state.OriginCoords, len(state.RoutePath))
				for _, p := range state.RoutePath {
					fmt.Fprintf(w, "  %s\n", p)
				}
			})
		},
	}
	cmd.Flags().String("from", "", "starting address to geocode")
	cmd.Flags().Float64("lat", 0, "device latitude")
	cmd.Flags().Float64("lng", 0, "device longitude")
	cmd.Flags().Bool("deny-location", false, "behave as if device location access was denied")
	return cmd
}

// deviceFromFlags returns the device locator the flags describe; nil means no device
func deviceFromFlags(cmd *cobra.Command) (service.DeviceLocator, error) {
	if deny, _ := cmd.Flags().GetBool("deny-location"); deny {
		return service.FixedLocation{Err: service.ErrGeolocationDenied}, nil
	}
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lng") {
		return nil, nil
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	p := model.Point{Lat: lat, Lng: lng}
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") || !p.Valid() {
		return nil, fmt.Errorf("--lat and --lng must both be given and in range")
	}
	return service.FixedLocation{Point: p}, nil
}

// newController wires one controller from environment configuration and flags
func newController(cmd *cobra.Command, device service.DeviceLocator) (*service.Controller, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		cfg.Catalog.Path = path
		cfg.Catalog.DSN = ""
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Timeouts.ExternalCall = timeout
	}
	cfg.Logging.Level, _ = cmd.Flags().GetString("log")
	cfg.Logging.Format = "console"

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	facilities, err := repository.LoadCatalog(cmd.Context(), cfg.Catalog)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeouts.HTTPClient}
	controller := service.NewController(service.ControllerDeps{
		Catalog:      service.NewCatalogIndex(facilities),
		Availability: service.NewAvailabilityClient(cfg.Services.AvailabilityEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, zl),
		Origins: service.NewLocationResolver(device,
			service.NewGeocoder(cfg.Services.GeocodingEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, cfg.Services.GeocoderRatePerSec, zl)),
		Routes:      service.NewRouteClient(cfg.Services.RoutingEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, zl),
		CallTimeout: cfg.Timeouts.ExternalCall,
		Log:         zl,
	})
	return controller, zl, nil
}

// render prints state in the selected format. A state carrying an error
// message is still printed in json/yaml, then returned as an error.
func render(cmd *cobra.Command, state model.SessionState, text func(io.Writer)) error {
	w := cmd.OutOrStdout()
	format, _ := cmd.Flags().GetString("output")

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return err
		}
	case "yaml":
		if err := writeYAML(w, state); err != nil {
			return err
		}
	case "text":
		if state.ErrorMessage == "" {
			text(w)
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if state.ErrorMessage != "" {
		return errors.New(state.ErrorMessage)
	}
	return nil
}

// writeYAML renders v with its JSON field names and value encodings
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
