package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
            id SERIAL PRIMARY KEY,
            name VARCHAR(100) NOT NULL DEFAULT '',
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            created_by INT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chat_members (
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            role VARCHAR(20) NOT NULL DEFAULT 'member',
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(chat_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            content_type VARCHAR(20) NOT NULL DEFAULT 'text',
            is_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            is_edited BOOLEAN NOT NULL DEFAULT FALSE,
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
            reply_to_id INT REFERENCES messages(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            edited_at TIMESTAMPTZ
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS reactions (
            message_id INT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji VARCHAR(20) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(message_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS contacts (
            owner_id INT NOT NULL,
            contact_id INT NOT NULL,
            chat_id INT NOT NULL REFERENCES chats(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(owner_id, contact_id)
        );`,
		`CREATE TABLE IF NOT EXISTS attachments (
            id SERIAL PRIMARY KEY,
            message_id INT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            file_name VARCHAR(200) NOT NULL,
            file_size BIGINT NOT NULL DEFAULT 0,
            mime_type VARCHAR(100) NOT NULL DEFAULT '',
            uploaded_by INT NOT NULL,
            uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS user_presence (
            user_id INT PRIMARY KEY,
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
