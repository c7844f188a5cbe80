package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/storage"
	"github.com/nocaplabs/claimcheck/storage/badger"
)

// samples is a small built-in labeled dataset used when no source file
// is given, enough to exercise the structured lookup stage.
var samples = []string{
	`{"title":"5G towers spread viruses","text":"Claims that 5G transmissions carry or activate viruses have no basis in physics or biology.","label":"Fake"}`,
	`{"title":"Drinking bleach cures infections","text":"Ingesting bleach is dangerous and cures nothing; poison control centers warn against it.","label":"Fake"}`,
	`{"title":"The Great Wall is visible from the Moon","text":"Astronauts confirm the wall is not visible to the naked eye from the Moon.","label":"Fake"}`,
	`{"title":"Vaccines cause autism","text":"The study behind this claim was retracted and its author struck off; large cohorts show no link.","label":"Fake"}`,
	`{"title":"Goldfish have three-second memories","text":"Goldfish can remember feeding routines for months, far beyond three seconds.","label":"Fake"}`,
	`{"title":"Humans only use ten percent of their brains","text":"Imaging shows activity across the whole brain; the ten percent figure is a myth.","label":"Fake"}`,
	`{"title":"Lightning never strikes twice","content":"Tall structures are struck repeatedly every year; the Empire State Building takes about 25 strikes annually.","label":"Misleading"}`,
	`{"title":"Sugar makes children hyperactive","content":"Controlled studies find no behavioral effect; expectation shapes parents' perception.","label":"Misleading"}`,
	`{"title":"Cracking knuckles causes arthritis","content":"Long-term studies found no arthritis link, though habitual cracking may reduce grip strength.","label":"Misleading"}`,
	`{"title":"Coffee stunts growth","claim":"No evidence ties moderate coffee consumption to reduced height.","prediction":"Fake"}`,
	`{"title":"The Earth orbits the Sun","text":"Heliocentrism is established science, confirmed by centuries of observation.","label":"Credible"}`,
	`{"title":"Smoking causes lung cancer","text":"The causal link between tobacco smoke and lung cancer is among the best documented in medicine.","label":"Credible"}`,
	`{"title":"Honey never spoils","text":"Sealed honey found in ancient tombs remains edible; low moisture and acidity prevent spoilage.","label":"Credible"}`,
	`{"title":"Antarctica is a desert","text":"Annual precipitation in Antarctica's interior is below desert thresholds.","label":"Credible"}`,
}

var (
	dbPath       = flag.String("db", "./claimcheck_data/db", "path to the BadgerDB database directory")
	seedFileName = flag.String("src", "", "file of JSON-lines article records")
	batchSize    = flag.Int("batch", 100, "articles per insert batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// seedBatched parses each line as a loosely-typed article record and
// inserts the reconciled articles in batches. Unparseable lines are
// logged and skipped, they never abort the run.
func seedBatched(ctx context.Context, repo storage.ArticleRepository, source iter.Seq[string], batchSize int) (int, error) {
	batch := make([]*core.Article, 0, batchSize)
	inserted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := repo.AddArticles(ctx, batch...); err != nil {
			return err
		}
		inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	lineNo := 0
	for line := range source {
		lineNo++
		if line == "" {
			continue
		}

		var legacy core.LegacyArticle
		if err := json.Unmarshal([]byte(line), &legacy); err != nil {
			slog.Warn("skipping unparseable line", "line", lineNo, "err", err)
			continue
		}
		article, err := legacy.Reconcile()
		if err != nil {
			slog.Warn("skipping incomplete record", "line", lineNo, "err", err)
			continue
		}

		batch = append(batch, article)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}

	return inserted, flush()
}

func main() {
	backend, err := badger.OpenBackend(*dbPath, false)
	if err != nil {
		panic(err)
	}
	defer backend.Close()

	repo, err := badger.NewArticleRepository(backend)
	if err != nil {
		panic(err)
	}
	defer repo.Close()

	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(samples)
	}

	inserted, err := seedBatched(context.Background(), repo, source, *batchSize)
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "articles", inserted)
}
