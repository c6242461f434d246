package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/openpetition/sigverify/internal/config"
	"github.com/openpetition/sigverify/internal/database"
	"github.com/openpetition/sigverify/internal/database/repository"
	"github.com/openpetition/sigverify/internal/ocr"
	"github.com/openpetition/sigverify/internal/service"
	"github.com/openpetition/sigverify/internal/testdata"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("sigverify failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "import-roll":
		return importRoll(ctx, cfg, args[1:])
	case "run":
		return runBatch(ctx, cfg, args[1:])
	case "seed":
		return seedRoll(ctx, cfg, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  sigverify import-roll -campaign ID -csv FILE
  sigverify seed -campaign ID [-count N] [-seed N]
  sigverify run -campaign ID [-provider NAME] [-model NAME] [-prompt-file FILE] PAGE.png [PAGE.png ...]`)
}

func openDB(cfg config.Config) (*repository.VoterRepo, *repository.BatchRepo, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, migrationsDir()); err != nil {
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return repository.NewVoterRepo(db), repository.NewBatchRepo(db), func() { _ = db.Close() }, nil
}

// migrationsDir resolves the schema directory next to the source tree or
// via SIGVERIFY_MIGRATIONS for installed binaries.
func migrationsDir() string {
	if dir := os.Getenv("SIGVERIFY_MIGRATIONS"); dir != "" {
		return dir
	}
	return "internal/database/migrations"
}

func importRoll(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("import-roll", flag.ExitOnError)
	campaign := fs.String("campaign", "", "campaign identifier")
	csvPath := fs.String("csv", "", "voter roll CSV export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *campaign == "" || *csvPath == "" {
		return fmt.Errorf("import-roll requires -campaign and -csv")
	}

	voters, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	importer := &service.RollImporter{Voters: voters}
	res, err := importer.ImportCSV(ctx, *campaign, f)
	if err != nil {
		return err
	}
	for _, lineErr := range res.Errors {
		slog.Warn("skipped roll row", "error", lineErr)
	}
	slog.Info("roll imported", "campaign", *campaign, "records", res.Imported, "skipped", len(res.Errors))
	return nil
}

func seedRoll(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	campaign := fs.String("campaign", "", "campaign identifier")
	count := fs.Int("count", 200, "number of roll rows to generate")
	seed := fs.Int64("seed", 1, "rng seed for reproducible rolls")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *campaign == "" {
		return fmt.Errorf("seed requires -campaign")
	}

	voters, _, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := testdata.SeedRoll(ctx, voters, *campaign, *count, *seed); err != nil {
		return err
	}
	slog.Info("roll seeded", "campaign", *campaign, "records", *count)
	return nil
}

func runBatch(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	campaign := fs.String("campaign", "", "campaign identifier")
	providerName := fs.String("provider", cfg.OCR.Provider, "ocr provider (openai, mistral, gemini)")
	model := fs.String("model", cfg.OCR.Model, "provider model override")
	promptFile := fs.String("prompt-file", "", "custom extraction prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *campaign == "" {
		return fmt.Errorf("run requires -campaign")
	}
	pagePaths := append([]string(nil), fs.Args()...)
	if len(pagePaths) == 0 {
		return fmt.Errorf("run requires at least one page image")
	}
	sort.Strings(pagePaths) // submission order is the sorted file order

	prompt := cfg.OCR.Prompt
	if *promptFile != "" {
		raw, err := os.ReadFile(*promptFile)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(raw)
	}

	pages := make([][]byte, 0, len(pagePaths))
	for _, p := range pagePaths {
		img, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read page %s: %w", p, err)
		}
		pages = append(pages, img)
	}

	voters, batches, closeDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	roll, err := voters.ListByCampaign(ctx, *campaign)
	if err != nil {
		return fmt.Errorf("load voter roll: %w", err)
	}

	provider, err := ocr.New(ctx, *providerName, ocr.Credentials{
		OpenAIKey:     cfg.OCR.OpenAIKey,
		MistralKey:    cfg.OCR.MistralKey,
		GeminiProject: cfg.OCR.GeminiProject,
		GeminiRegion:  cfg.OCR.GeminiRegion,
	})
	if err != nil {
		return err
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	coord := &service.Coordinator{
		Provider:     provider,
		Concurrency:  cfg.Pipeline.Concurrency,
		Retries:      cfg.Pipeline.Retries,
		CallTimeout:  cfg.Pipeline.CallTimeout,
		BatchTimeout: cfg.Pipeline.BatchTimeout,
	}
	result, err := coord.Run(ctx, service.BatchInput{
		CampaignID: *campaign,
		Pages:      pages,
		Model:      *model,
		Prompt:     prompt,
		Roll:       roll,
	})
	if err != nil {
		return err
	}

	if err := persistResult(ctx, batches, result, len(pages)); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}
	printResult(os.Stdout, pagePaths, result)
	return nil
}

func persistResult(ctx context.Context, batches *repository.BatchRepo, result *service.BatchResult, pageCount int) error {
	if err := batches.Create(ctx, repository.Batch{
		ID:         result.BatchID,
		CampaignID: result.CampaignID,
		Status:     repository.BatchStatusResolved,
		PageCount:  pageCount,
	}); err != nil {
		return err
	}
	rows := make([]repository.VerdictRow, 0, len(result.Verdicts))
	for _, v := range result.Verdicts {
		rows = append(rows, repository.VerdictRow{
			ID:            v.EntryID,
			BatchID:       result.BatchID,
			PageIndex:     v.PageIndex,
			EntryIndex:    v.EntryIndex,
			Name:          v.Name,
			Address:       v.Address,
			SignedDate:    v.Date,
			Ward:          v.Ward,
			Status:        string(v.Status),
			VoterRecordID: v.VoterID,
			Confidence:    v.Confidence,
			Reason:        v.Reason,
		})
	}
	return batches.SaveVerdicts(ctx, result.BatchID, rows)
}

func printResult(w io.Writer, pagePaths []string, result *service.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "batch %s\n", result.BatchID)
	fmt.Fprintln(tw, "PAGE\tROW\tNAME\tSTATUS\tVOTER\tCONF\tREASON")
	for _, v := range result.Verdicts {
		voter := "-"
		if v.VoterID != nil {
			voter = fmt.Sprintf("%d", *v.VoterID)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.2f\t%s\n",
			v.PageIndex+1, v.EntryIndex+1, v.Name, v.Status, voter, v.Confidence, v.Reason)
	}
	for _, p := range result.Pages {
		if !p.OK {
			fmt.Fprintf(tw, "page %s failed: %s\n", pagePaths[p.Page], p.Error)
		}
	}
	_ = tw.Flush()
}
