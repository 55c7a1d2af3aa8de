// Command promo-ingest bulk-imports single-use coupon codes from gzipped
// partner dumps. Each dump is a JSON-lines file; codes seen in an earlier
// file or earlier in the same run are dropped, and the surviving rows go into
// postgres in one COPY.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/northmill/storefront/internal/domain/coupon"
	"github.com/northmill/storefront/internal/repository"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.0001
	progressEvery = 1_000_000
	minCodeLen    = 6
	maxCodeLen    = 16
)

// codeEntry is one decoded dump line.
type codeEntry struct {
	Code  string
	Kind  string
	Value decimal.Decimal
}

func main() {
	var (
		dataDir     string
		databaseURL string
		validDays   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz dump files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&validDays, "valid-days", 30, "validity window length for imported codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, validDays); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, validDays int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}

	slog.Info("parsing dump files", slog.Int("files", len(files)))

	entries, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse dump files")
	}

	slog.Info("unique codes found", slog.Int("count", len(entries)))
	if len(entries) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := copyCoupons(ctx, pool, entries, validDays); err != nil {
		return errors.Wrap(err, "copy coupons to database")
	}

	return nil
}

// parseFiles decodes every dump concurrently and merges the results. A bloom
// filter guards a definite-set lookup so the cross-file de-dup stays cheap
// even with tens of millions of codes.
func parseFiles(ctx context.Context, files []string) ([]codeEntry, error) {
	perFile := make([][]codeEntry, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFile(ctx, i, f, perFile))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seen := make(map[string]struct{})

	var merged []codeEntry
	for _, entries := range perFile {
		for _, e := range entries {
			if filter.TestString(e.Code) {
				// Possible duplicate; confirm against the definite set.
				if _, dup := seen[e.Code]; dup {
					continue
				}
			}
			filter.AddString(e.Code)
			seen[e.Code] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged, nil
}

func parseFile(ctx context.Context, idx int, path string, results [][]codeEntry) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var (
			entries []codeEntry
			count   uint64
		)

		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			e, err := decodeLine(scanner.Bytes())
			if err != nil {
				return errors.Wrapf(err, "decode line in %s", path)
			}
			if len(e.Code) < minCodeLen || len(e.Code) > maxCodeLen {
				continue
			}
			e.Code = coupon.NormalizeCode(e.Code)
			entries = append(entries, e)

			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.Int("file", idx+1), slog.Uint64("lines", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("parse complete",
			slog.Int("file", idx+1),
			slog.Uint64("lines", count),
			slog.Int("entries", len(entries)),
		)

		results[idx] = entries
		return nil
	}
}

// decodeLine parses one dump line: {"code": "...", "kind": "...", "value": "..."}.
// Kind and value are optional and default to a 10% discount.
func decodeLine(line []byte) (codeEntry, error) {
	e := codeEntry{Kind: "percentage", Value: decimal.NewFromInt(10)}

	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.Code = s
			return nil
		case "kind":
			s, err := d.Str()
			if err != nil {
				return err
			}
			e.Kind = s
			return nil
		case "value":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			v, err := decimal.NewFromString(trimQuotes(string(raw)))
			if err != nil {
				return err
			}
			e.Value = v
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return codeEntry{}, err
	}
	if e.Code == "" {
		return codeEntry{}, errors.New("missing code field")
	}
	return e, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// copyCoupons streams the entries into the coupons table in a single COPY.
// Imported codes are active immediately, apply storewide, and stay off the
// public listing surfaces.
func copyCoupons(ctx context.Context, pool *pgxpool.Pool, entries []codeEntry, validDays int) error {
	slog.Info("copying coupons", slog.Int("count", len(entries)))

	now := time.Now().UTC()
	endsAt := now.Add(time.Duration(validDays) * 24 * time.Hour)

	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{
			uuid.New().String(), e.Code, e.Kind, e.Value,
			string(coupon.StatusActive), "all", []string{},
			string(coupon.DisplayHidden), now, endsAt,
		}
	}

	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"coupons"},
		[]string{"id", "code", "kind", "value", "status", "scope_kind", "scope_targets", "display", "starts_at", "ends_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	slog.Info("copy complete", slog.Int64("rows", n))
	return nil
}
