// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// Models lista as entidades na ordem em que precisam existir.
func Models() []any {
	return []any{
		&domain.Event{},
		&domain.Show{},
		&domain.Criteria{},
		&domain.Phase{},
		&domain.Contestant{},
		&domain.ContestantPhase{},
		&domain.Judge{},
		&domain.Score{},
	}
}

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202410150001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(Models()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"scores", "judges", "contestant_phases", "contestants",
					"phases", "criteria", "shows", "events",
				)
			},
		},
		{
			// Índice parcial: o banco recusa uma segunda fase ativa no mesmo evento.
			ID: "202410150002_single_active_phase",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_phases_single_active ON phases (event_id) WHERE status = 'active'`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_phases_single_active`).Error
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}
