package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial 创建提示词历史与发布审计表
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create prompt history and publish audit tables"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS prompt_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_history_created_at ON prompt_history(created_at)`,
		`CREATE TABLE IF NOT EXISTS publish_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			status VARCHAR(32) NOT NULL,
			username VARCHAR(255),
			caption TEXT,
			media_id VARCHAR(255),
			image_source VARCHAR(32),
			error TEXT,
			duration_ms INTEGER,
			metadata JSON,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_status ON publish_records(status)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_username ON publish_records(username)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_created_at ON publish_records(created_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	if err := db.Exec(`DROP TABLE IF EXISTS publish_records`).Error; err != nil {
		return err
	}
	return db.Exec(`DROP TABLE IF EXISTS prompt_history`).Error
}
