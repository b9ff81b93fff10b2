package fitness

import (
	"context"

	"github.com/fitlifekr/backend/internal/prescription"
	"github.com/fitlifekr/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// Repo reads the national physical fitness measurement rows. The bulk
// ingestion job writes them; this side only consumes.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add stores one measurement row and backfills its generated id.
func (r *Repo) Add(ctx context.Context, rec *prescription.RawRecord) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.db.QueryRow(
		ctx,
		`INSERT INTO physical_fitness_results (height_cm, weight_kg, pres_note, age_class, test_sex, test_ym)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		rec.HeightCm, rec.WeightKg, rec.PresNote, rec.AgeClass, rec.TestSex, rec.TestYM,
	).Scan(&rec.ID)
}

// ListForTraining returns every measurement row that has a height, a
// weight and a prescription note. Finer cleaning (parsing, outlier
// bounds, tag extraction) happens in the dataset preparer.
func (r *Repo) ListForTraining(ctx context.Context) (_ []prescription.RawRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.listForTraining")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, height_cm, weight_kg, pres_note, age_class, test_sex, test_ym
			FROM physical_fitness_results
			WHERE height_cm IS NOT NULL AND height_cm != ''
			  AND weight_kg IS NOT NULL AND weight_kg != ''
			  AND pres_note IS NOT NULL AND pres_note != '';`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []prescription.RawRecord
	for rows.Next() {
		var rec prescription.RawRecord
		var ageClass, testSex, testYM *string
		if err := rows.Scan(
			&rec.ID, &rec.HeightCm, &rec.WeightKg, &rec.PresNote,
			&ageClass, &testSex, &testYM,
		); err != nil {
			return nil, err
		}
		if ageClass != nil {
			rec.AgeClass = *ageClass
		}
		if testSex != nil {
			rec.TestSex = *testSex
		}
		if testYM != nil {
			rec.TestYM = *testYM
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records.count", len(records)))
	return records, nil
}

// Count returns the total number of measurement rows.
func (r *Repo) Count(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.fitness.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM physical_fitness_results;`,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
