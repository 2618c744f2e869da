package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

// UpsertSiteSettings inserts or updates the per-domain preferences. On
// conflict, every field except created_at is overwritten — created_at
// keeps the value from the first insert.
func (s *Store) UpsertSiteSettings(settings *types.SiteSettings) error {
	var categoryStr sql.NullString
	if settings.Category != nil {
		categoryStr = sql.NullString{String: settings.Category.String(), Valid: true}
	}

	_, err := s.exec(
		`INSERT INTO site_settings (domain, connections, save_folder, category, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
		     connections = excluded.connections,
		     save_folder = excluded.save_folder,
		     category = excluded.category,
		     user_agent = excluded.user_agent`,
		settings.Domain, nullIntAsInt64(settings.Connections), nullStr(settings.SaveFolder), categoryStr, nullStr(settings.UserAgent),
		settings.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert site settings: %w", err)
	}
	return nil
}

// GetSiteSettings returns the preferences stored for domain, or nil if
// none have been configured.
func (s *Store) GetSiteSettings(domain string) (*types.SiteSettings, error) {
	row := s.queryRow(
		"SELECT domain, connections, save_folder, category, user_agent, created_at FROM site_settings WHERE domain = ?",
		domain,
	)

	var (
		d                     string
		connections           sql.NullInt64
		saveFolder, userAgent sql.NullString
		categoryStr           sql.NullString
		createdAt             string
	)
	err := row.Scan(&d, &connections, &saveFolder, &categoryStr, &userAgent, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get site settings: %w", err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse site settings created_at: %w", err)
	}

	var category *types.FileCategory
	if categoryStr.Valid {
		c := types.ParseFileCategory(categoryStr.String)
		category = &c
	}

	return &types.SiteSettings{
		Domain:      d,
		Connections: intPtr(connections),
		SaveFolder:  strPtr(saveFolder),
		Category:    category,
		UserAgent:   strPtr(userAgent),
		CreatedAt:   t,
	}, nil
}
