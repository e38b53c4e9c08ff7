package offline

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

var (
	salesColumns    = []string{"date", "sales", "category", "region"}
	customerColumns = []string{"customer_id", "age", "gender", "purchase_amount", "satisfaction"}
)

// streamCSV reads path line by line and parses each batch concurrently.
// Rows keep their file order; rows that fail to parse are counted and skipped.
func streamCSV[T any](ctx context.Context, path string, columns []string, parse func([]string) (T, error)) ([]T, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	if !scanner.Scan() {
		return nil, 0, fmt.Errorf("empty file")
	}
	if err := checkHeader(scanner.Text(), columns); err != nil {
		return nil, 0, err
	}

	var (
		records []T
		skipped int
	)
	batch := make([]string, 0, batchSize)

	flush := func() error {
		parsed, bad, err := parseBatch(ctx, batch, parse)
		if err != nil {
			return err
		}
		records = append(records, parsed...)
		skipped += bad
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		batch = append(batch, line)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan error: %w", err)
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, 0, err
		}
	}

	return records, skipped, nil
}

func parseBatch[T any](ctx context.Context, batch []string, parse func([]string) (T, error)) ([]T, int, error) {
	type result struct {
		rec   T
		valid bool
	}
	results := make([]result, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, line := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rec, err := parse(strings.Split(line, ","))
			if err != nil {
				return nil
			}
			results[i] = result{rec: rec, valid: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, len(results))
	for _, r := range results {
		if r.valid {
			out = append(out, r.rec)
		}
	}
	return out, len(results) - len(out), nil
}

func checkHeader(line string, want []string) error {
	got := strings.Split(strings.TrimPrefix(line, "\ufeff"), ",")
	for i := range got {
		got[i] = strings.ToLower(strings.TrimSpace(got[i]))
	}
	if len(got) < len(want) || !slices.Equal(got[:len(want)], want) {
		return fmt.Errorf("unexpected header %q, want %s", line, strings.Join(want, ","))
	}
	return nil
}

func parseSalesRecord(record []string) (models.SalesRecord, error) {
	if len(record) < len(salesColumns) {
		return models.SalesRecord{}, fmt.Errorf("insufficient columns")
	}

	date, err := models.ParseDate(strings.TrimSpace(record[0]))
	if err != nil {
		return models.SalesRecord{}, err
	}

	amount, err := parseAmount(record[1])
	if err != nil {
		return models.SalesRecord{}, err
	}

	return models.SalesRecord{
		Date:     date,
		Amount:   amount,
		Category: strings.TrimSpace(record[2]),
		Region:   strings.TrimSpace(record[3]),
	}, nil
}

func parseCustomerRecord(record []string) (models.CustomerRecord, error) {
	if len(record) < len(customerColumns) {
		return models.CustomerRecord{}, fmt.Errorf("insufficient columns")
	}

	id, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return models.CustomerRecord{}, err
	}

	age, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return models.CustomerRecord{}, err
	}

	purchase, err := parseAmount(record[3])
	if err != nil {
		return models.CustomerRecord{}, err
	}

	satisfaction, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil {
		return models.CustomerRecord{}, err
	}

	return models.CustomerRecord{
		ID:             id,
		Age:            age,
		Gender:         strings.TrimSpace(record[2]),
		PurchaseAmount: purchase,
		Satisfaction:   satisfaction,
	}, nil
}

// parseAmount rejects NaN and infinities along with malformed numbers.
func parseAmount(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite amount %q", field)
	}
	return v, nil
}
