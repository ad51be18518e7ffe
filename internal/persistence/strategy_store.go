package persistence

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tehqua/QuantFlow/pkg/errors"
)

// StrategyRecord is a stored strategy definition: which registered strategy
// it runs and the YAML configuration it runs with.
type StrategyRecord struct {
	ID        string
	Name      string
	Strategy  string
	Config    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// defaultSMATemplate mirrors the stock SMA crossover setup new installs get.
const defaultSMATemplate = `fast_period: 10
slow_period: 20
quantity: 1
stop_loss_pct: 2
take_profit_pct: 4
`

// SaveStrategy inserts or updates a strategy definition.
func (s *Store) SaveStrategy(record StrategyRecord) error {
	if record.ID == "" || record.Strategy == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy record needs an id and a strategy name")
	}

	now := time.Now().UTC()

	update := s.sq.
		Update("strategies").
		Set("name", record.Name).
		Set("strategy", record.Strategy).
		Set("config", record.Config).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": record.ID}).
		RunWith(s.db)

	result, err := update.Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to update strategy", err)
	}

	if updated, err := result.RowsAffected(); err == nil && updated > 0 {
		return nil
	}

	insert := s.sq.
		Insert("strategies").
		Columns("id", "name", "strategy", "config", "created_at", "updated_at").
		Values(record.ID, record.Name, record.Strategy, record.Config, now, now).
		RunWith(s.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreWriteError, "failed to insert strategy", err)
	}

	return nil
}

// LoadStrategy fetches a strategy definition by id.
func (s *Store) LoadStrategy(id string) (StrategyRecord, error) {
	selectStrategy := s.sq.
		Select("id", "name", "strategy", "config", "created_at", "updated_at").
		From("strategies").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db)

	var record StrategyRecord

	err := selectStrategy.QueryRow().Scan(&record.ID, &record.Name, &record.Strategy, &record.Config, &record.CreatedAt, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return StrategyRecord{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy not found: %s", id)
	}

	if err != nil {
		return StrategyRecord{}, errors.Wrap(errors.ErrCodeStoreReadError, "failed to load strategy", err)
	}

	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return record, nil
}

// ListStrategies returns every stored strategy definition, oldest first.
func (s *Store) ListStrategies() ([]StrategyRecord, error) {
	selectStrategies := s.sq.
		Select("id", "name", "strategy", "config", "created_at", "updated_at").
		From("strategies").
		OrderBy("created_at ASC").
		RunWith(s.db)

	rows, err := selectStrategies.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to query strategies", err)
	}
	defer rows.Close()

	var records []StrategyRecord

	for rows.Next() {
		var record StrategyRecord

		if err := rows.Scan(&record.ID, &record.Name, &record.Strategy, &record.Config, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreReadError, "failed to scan strategy", err)
		}

		record.CreatedAt = record.CreatedAt.UTC()
		record.UpdatedAt = record.UpdatedAt.UTC()
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreReadError, "error iterating strategies", err)
	}

	return records, nil
}

// SeedTemplates installs the default strategy templates on an empty table.
// A store that already has strategies is left alone.
func (s *Store) SeedTemplates() error {
	records, err := s.ListStrategies()
	if err != nil {
		return err
	}

	if len(records) > 0 {
		return nil
	}

	return s.SaveStrategy(StrategyRecord{
		ID:       "sma-crossover-default",
		Name:     "SMA Crossover",
		Strategy: "sma_crossover",
		Config:   defaultSMATemplate,
	})
}
