package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"icr-prover/internal/config"
	"icr-prover/internal/fixture"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/users"
	"icr-prover/pkg/logger"
	"icr-prover/pkg/utilities"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger.InitDefaultLogger(logger.GlobalLoggerConfig{
		Args: []logger.LoggerArg{{Key: "service", Value: "icr-prover-cli"}},
	})
	logger.ApplyConfig(logger.LoggerConfigJson{Level: "info", Pretty: true}.ConvertToDomain())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "prove":
		err = runProve(ctx, args)
	case "execute":
		err = runExecute(ctx, args)
	case "export-verifier":
		err = runExportVerifier(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Default().Error(err, cmd+" failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: prover-cli <command> [flags]

Commands:
  prove            prove every user (or --user-index) and write one fixture per user
  execute          run the guest for a user without generating a proof
  export-verifier  write the Solidity verifier for a proof system
  verify           verify a fixture file

Run prover-cli <command> -h for the flags of a command.
`)
}

// commonFlags are shared by every command that builds the prover stack.
type commonFlags struct {
	system     string
	keys       string
	usersURL   string
	priceURL   string
	priceCents uint
	out        string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.system, "system", "groth16", "proof system: groth16 or plonk")
	fs.StringVar(&c.keys, "keys", "", "key store directory; keys are regenerated when empty")
	fs.StringVar(&c.usersURL, "users-url", "", "user records API; built-in sample users when empty")
	fs.StringVar(&c.priceURL, "price-url", "", "BTC price API (coingecko format)")
	fs.UintVar(&c.priceCents, "price-cents", 0, "fixed BTC price in USD cents instead of the price API")
}

func (c *commonFlags) wire(ctx context.Context) (*config.Components, prover.ProofSystem, error) {
	system, err := prover.ParseProofSystem(c.system)
	if err != nil {
		return nil, "", err
	}

	cfg := config.ProverConfigJson{
		ProverConf:    config.ProvingConfigJson{DefaultSystem: c.system, KeyStorePath: c.keys},
		PriceFeedConf: config.PriceFeedConfigJson{URL: c.priceURL, StaticCents: uint32(c.priceCents)},
		UsersConf:     config.UsersConfigJson{URL: c.usersURL},
		FixturesConf:  config.FixturesConfigJson{Directory: c.out},
	}.ConvertToDomain()

	components, err := config.Wire(ctx, cfg, logger.Default())
	if err != nil {
		return nil, "", err
	}
	return components, system, nil
}

func runProve(ctx context.Context, args []string) error {
	var flags commonFlags
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	flags.register(fs)
	fs.StringVar(&flags.out, "out", "fixtures", "fixture output directory")
	userIndex := fs.Int("user-index", -1, "prove only the user at this index")
	_ = fs.Parse(args)

	components, system, err := flags.wire(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	records, err := components.Users.Users(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Default().Warn("No users found")
		return nil
	}
	records, err = users.Select(records, *userIndex)
	if err != nil {
		return err
	}

	report, err := components.Service.ProveUsers(ctx, records, system)
	if err != nil {
		return err
	}
	components.Orchestrator.Wait()

	paths := utilities.Map(report.Results, func(r *proving.Result) string { return r.FixturePath })
	for _, p := range paths {
		fmt.Println(p)
	}

	if len(report.Failed) > 0 {
		addresses := make([]string, 0, len(report.Failed))
		for address := range report.Failed {
			addresses = append(addresses, address)
		}
		sort.Strings(addresses)
		for _, address := range addresses {
			fmt.Fprintf(os.Stderr, "%s: %v\n", address, report.Failed[address])
		}
		return fmt.Errorf("%d of %d users failed", len(report.Failed), len(records))
	}
	return nil
}

func runExecute(ctx context.Context, args []string) error {
	var flags commonFlags
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	flags.register(fs)
	userIndex := fs.Int("user-index", 0, "user to execute")
	_ = fs.Parse(args)

	components, system, err := flags.wire(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	records, err := components.Users.Users(ctx)
	if err != nil {
		return err
	}
	selected, err := users.Select(records, *userIndex)
	if err != nil {
		return err
	}

	exec, err := components.Service.Execute(ctx, selected[0].ServiceRequest(), system)
	if err != nil {
		return err
	}
	return printJSON(exec)
}

func runExportVerifier(ctx context.Context, args []string) error {
	var flags commonFlags
	fs := flag.NewFlagSet("export-verifier", flag.ExitOnError)
	flags.register(fs)
	outFile := fs.String("o", "", "output file, stdout when empty")
	_ = fs.Parse(args)

	components, system, err := flags.wire(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	w := os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return components.Service.ExportVerifier(ctx, system, w)
}

func runVerify(ctx context.Context, args []string) error {
	var flags commonFlags
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	flags.register(fs)
	fixturePath := fs.String("fixture", "", "fixture file to verify")
	_ = fs.Parse(args)

	if *fixturePath == "" {
		return fmt.Errorf("--fixture is required")
	}
	content, err := os.ReadFile(*fixturePath)
	if err != nil {
		return err
	}
	var f fixture.Fixture
	if err := json.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	flags.system = f.ProofSystem
	if flags.keys == "" {
		logger.Default().Warn("No --keys given, the fixture only verifies against the key store it was proved with")
	}

	components, _, err := flags.wire(ctx)
	if err != nil {
		return err
	}
	defer components.Close()

	artifact, err := f.Artifact()
	if err != nil {
		return err
	}
	if err := components.Service.Verify(ctx, artifact); err != nil {
		return err
	}

	outputs, err := artifact.Outputs()
	if err != nil {
		return err
	}
	logger.Default().Infof("Proof valid for %s: icr %d, collateral %d USD", f.UserAddress, outputs.Icr, outputs.CollateralAmountUsd)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
