// Package main provides a CLI for exploring the fleet service API. It can
// open a throwaway demo session, browse and edit its collections and print
// reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/client"
	"github.com/fleetdesk/fleet-service/internal/models"
)

type options struct {
	baseURL      string
	action       string
	resource     string
	id           int64
	data         string
	page         int
	pageSize     int
	report       string
	query        client.ReportQuery
	accessToken  string
	refreshToken string
	keep         bool
	verbose      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080/api/v1", "Fleet service API base URL")
	flag.StringVar(&opts.action, "action", "list", "Action to perform: start, me, list, get, create, update, delete, report")
	flag.StringVar(&opts.resource, "resource", "cars", "Collection: cars, fuel, insurances, inspections, spares, tires, accumulators")
	flag.Int64Var(&opts.id, "id", 0, "Item id for get, update and delete")
	flag.StringVar(&opts.data, "data", "", "JSON object for create and update")
	flag.IntVar(&opts.page, "page", 0, "Page number for list")
	flag.IntVar(&opts.pageSize, "page-size", 0, "Page size for list")
	flag.StringVar(&opts.report, "report", "fuel-consumption",
		"Report: fuel-consumption, cost-summary, maintenance-costs, insurance-inspection")
	flag.StringVar(&opts.query.From, "from", "", "Report start month (YYYY-MM)")
	flag.StringVar(&opts.query.To, "to", "", "Report end month (YYYY-MM)")
	flag.Int64Var(&opts.query.CarID, "car", 0, "Report car id")
	flag.StringVar(&opts.query.Status, "status", "", "Coverage status: active, expiring_soon, expired")
	flag.StringVar(&opts.accessToken, "token", os.Getenv("FLEET_ACCESS_TOKEN"), "Access token; a demo session is started when empty")
	flag.StringVar(&opts.refreshToken, "refresh-token", os.Getenv("FLEET_REFRESH_TOKEN"), "Refresh token")
	flag.BoolVar(&opts.keep, "keep", false, "Keep the demo session started for this run")
	flag.BoolVar(&opts.verbose, "v", false, "Log HTTP requests")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(context.Background(), opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *logrus.Logger) error {
	const requestTimeout = 30 * time.Second
	base := client.NewBaseClient(opts.baseURL, requestTimeout, logger)

	var fleet *client.FleetClient
	if opts.accessToken != "" {
		fleet = client.NewFleetClient(base, client.NewTokenManager(base, opts.accessToken, opts.refreshToken))
	} else {
		started, err := client.StartDemo(ctx, base)
		if err != nil {
			return err
		}
		fleet = started
		if !opts.keep && opts.action != "start" {
			defer func() {
				if err := fleet.EndDemo(context.Background()); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to end demo session: %v\n", err)
				}
			}()
		}
	}

	if opts.action == "start" {
		if fleet.Session() == nil {
			return errors.New("start needs no -token")
		}
		return printJSON(fleet.Session())
	}
	if opts.action == "me" {
		me, err := fleet.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(me)
	}

	rt, err := models.ParseResourceType(opts.resource)
	if err != nil && opts.action != "report" {
		return err
	}

	switch opts.action {
	case "list":
		page, err := fleet.List(ctx, rt, opts.page, opts.pageSize)
		if err != nil {
			return err
		}
		return printJSON(page)
	case "get":
		item, err := fleet.Get(ctx, rt, opts.id)
		if err != nil {
			return err
		}
		return printJSON(item)
	case "create", "update":
		fields, err := parseFields(opts.data)
		if err != nil {
			return err
		}
		var item models.Item
		if opts.action == "create" {
			item, err = fleet.Create(ctx, rt, fields)
		} else {
			item, err = fleet.Update(ctx, rt, opts.id, fields)
		}
		if err != nil {
			return err
		}
		return printJSON(item)
	case "delete":
		if err := fleet.Delete(ctx, rt, opts.id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s %d\n", rt, opts.id)
		return nil
	case "report":
		return printReport(ctx, fleet, opts)
	default:
		return fmt.Errorf("unknown action %q", opts.action)
	}
}

func printReport(ctx context.Context, fleet *client.FleetClient, opts options) error {
	switch opts.report {
	case "fuel-consumption":
		report, err := fleet.FuelConsumption(ctx, opts.query)
		if err != nil {
			return err
		}
		return printJSON(report)
	case "cost-summary":
		report, err := fleet.CostSummary(ctx, opts.query)
		if err != nil {
			return err
		}
		return printJSON(report)
	case "maintenance-costs":
		report, err := fleet.MaintenanceCosts(ctx, opts.query)
		if err != nil {
			return err
		}
		return printJSON(report)
	case "insurance-inspection":
		report, err := fleet.InsuranceInspection(ctx, opts.query)
		if err != nil {
			return err
		}
		return printJSON(report)
	default:
		return fmt.Errorf("unknown report %q", opts.report)
	}
}

func parseFields(data string) (map[string]any, error) {
	if data == "" {
		return nil, errors.New("-data is required")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("invalid -data: %w", err)
	}
	if fields == nil {
		return nil, errors.New("-data must be a JSON object")
	}
	return fields, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
