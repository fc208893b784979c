package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/config"
	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/logger"
	"github.com/timmy/ecomatch/internal/oracle"
	"github.com/timmy/ecomatch/internal/orchestrate"
	"github.com/timmy/ecomatch/internal/retrieve"
	"github.com/timmy/ecomatch/internal/schedule"
	"github.com/timmy/ecomatch/internal/store"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "ecomatch-runbatch",
	})
	logger.SetDefaultLogger(appLogger)

	inputPath := flag.String("input", "", "Path to an input CSV of rows to process")
	mode := flag.String("mode", "review", "Processing mode: review or auto")
	configPath := flag.String("config", "", "Path to config file")
	workers := flag.Int("workers", 0, "Worker count override (0 uses configured default)")
	flag.Parse()

	if *inputPath == "" {
		appLogger.Fatal("Missing required -input flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := store.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	repo := store.NewRepository(db)

	entries, err := catalogue.LoadCSV(cfg.Catalogue.CSVPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load catalogue")
	}

	var vectors catalogue.VectorSearcher
	if cfg.Qdrant.Host != "" {
		qs, err := catalogue.NewQdrantVectorSearcher(catalogue.QdrantConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Qdrant vector searcher")
		}
		vectors = qs
	}

	cat := catalogue.NewInMemoryStore(entries, vectors)
	embedder := retrieve.NewJinaEmbedder(cfg.Embedding)
	retriever := retrieve.NewRetriever(cat, embedder, retrieve.DefaultParams)
	llmClient := oracle.NewClient(cfg.LLM)

	limiter := schedule.NewLimiter(cfg.LLM.MinCallInterval)
	decider := schedule.NewRateLimitedDecider(llmClient, limiter)

	processingMode := domain.ModeReview
	if *mode == "auto" {
		processingMode = domain.ModeAuto
	}

	workerCount := *workers
	if workerCount <= 0 {
		workerCount = cfg.Batch.Workers
	}

	orc := orchestrate.New(repo, cat, retriever, decider, processingMode, cfg.Catalogue.Version)
	pool := schedule.New(orc, repo, workerCount)

	rows, err := loadInputCSV(*inputPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read input CSV")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, cancelling job")
		cancel()
	}()

	jobID := uuid.NewString()
	if _, err := repo.CreateJob(jobID, processingMode, len(rows)); err != nil {
		appLogger.WithError(err).Fatal("Failed to create job")
	}
	if err := repo.AddInputRows(jobID, rows); err != nil {
		appLogger.WithError(err).Fatal("Failed to add input rows")
	}

	appLogger.WithFields(logger.Fields{
		"job_id": jobID,
		"rows":   len(rows),
		"mode":   processingMode,
	}).Info("Starting batch")

	if err := pool.RunJob(ctx, jobID); err != nil {
		appLogger.WithError(err).Fatal("Batch run failed")
	}

	job, err := repo.JobByID(jobID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load job summary")
	}

	appLogger.WithFields(logger.Fields{
		"job_id":     job.ID,
		"status":     job.Status,
		"total":      job.Total,
		"calculated": job.Calculated,
		"ambiguous":  job.Ambiguous,
		"errors":     job.Errors,
	}).Info("Batch finished")

	printExportSummary(repo, jobID)
}

// printExportSummary renders ExportRows(jobID) to stdout, the plain
// per-row listing an out-of-scope HTTP/export layer would otherwise
// serialise, §6.
func printExportSummary(repo *store.Repository, jobID string) {
	rows, err := repo.ExportRows(jobID)
	if err != nil {
		logger.Error("failed to export rows: %v", err)
		return
	}
	for _, row := range rows {
		switch row.Status {
		case domain.RowCalculated:
			fmt.Printf("row %d [%s]: common=%s t biogen=%s t -- %s\n",
				row.RowIndex, row.Bezeichnung, row.CommonT, row.BiogenicT, row.Beschreibung)
		case domain.RowAmbiguous:
			fmt.Printf("row %d [%s]: AMBIGUOUS, awaiting resolution\n", row.RowIndex, row.Bezeichnung)
		case domain.RowError:
			fmt.Printf("row %d [%s]: ERROR: %s\n", row.RowIndex, row.Bezeichnung, row.ErrorMessage)
		}
	}
}

// loadInputCSV reads a spreadsheet export into InputRow values, §3/§6
// "Inputs to the core". Required columns: bezeichnung,
// referenzeinheit. Optional: scope, kategorie, unterkategorie,
// produktinformationen, region, referenzjahr.
func loadInputCSV(path string) ([]domain.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ','
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []domain.InputRow
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		rows = append(rows, domain.InputRow{
			Scope:                domain.Scope(get(rec, "scope")),
			Kategorie:            get(rec, "kategorie"),
			Unterkategorie:       get(rec, "unterkategorie"),
			Bezeichnung:          get(rec, "bezeichnung"),
			Produktinformationen: get(rec, "produktinformationen"),
			Referenzeinheit:      get(rec, "referenzeinheit"),
			Region:               get(rec, "region"),
			Referenzjahr:         get(rec, "referenzjahr"),
			Status:               domain.RowPending,
		})
	}
	return rows, nil
}
