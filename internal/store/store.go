// Package store persists the category → ad-group → keyword hierarchy
// in MySQL through GORM. The tree is small (hundreds of keywords), so
// the dashboard autosave replaces it wholesale in one transaction
// rather than diffing.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
)

// ErrNotFound is returned when a named category or ad group does not
// exist.
var ErrNotFound = errors.New("store: not found")

// Category is the top level of the tracked hierarchy.
type Category struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:255;not null"`
	CreatedAt time.Time
	AdGroups  []AdGroup `gorm:"constraint:OnDelete:CASCADE"`
}

// AdGroup clusters keywords under a category.
type AdGroup struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"uniqueIndex;size:255;not null"`
	CategoryID uint      `gorm:"index"`
	CreatedAt  time.Time
	Keywords   []Keyword `gorm:"constraint:OnDelete:CASCADE"`
}

// Keyword is a tracked search query.
type Keyword struct {
	ID        uint   `gorm:"primaryKey"`
	Keyword   string `gorm:"uniqueIndex;size:255;not null"`
	AdGroupID uint   `gorm:"index"`
	CreatedAt time.Time
}

// KeywordRow is the flat shape returned by batch reads: one keyword
// with the ad group and category it belongs to.
type KeywordRow struct {
	KeywordID   uint   `json:"keyword_id"`
	Keyword     string `json:"keyword"`
	AdGroupID   uint   `json:"ad_group_id"`
	AdGroupName string `json:"ad_group_name"`
	CategoryID  uint   `json:"category_id"`
}

// Store wraps the GORM handle.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL, configures the pool, and migrates the schema.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Category{}, &AdGroup{}, &Keyword{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logger.WithField("database", cfg.Name).Info("store initialized")
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing GORM handle (used in tests).
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ── Categories ──

// UpsertCategory inserts a category by name or returns the existing
// row's ID.
func (s *Store) UpsertCategory(ctx context.Context, name string) (uint, error) {
	cat := Category{Name: name}
	err := s.db.WithContext(ctx).
		Where(Category{Name: name}).
		FirstOrCreate(&cat).Error
	if err != nil {
		return 0, fmt.Errorf("store: upsert category %q: %w", name, err)
	}
	return cat.ID, nil
}

// Categories returns all categories ordered by name, without children.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := s.db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	return cats, nil
}

// ── Ad groups ──

// UpsertAdGroup inserts an ad group or moves an existing one under the
// given category.
func (s *Store) UpsertAdGroup(ctx context.Context, name string, categoryID uint) (uint, error) {
	group := AdGroup{Name: name, CategoryID: categoryID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"category_id"}),
		}).
		Create(&group).Error
	if err != nil {
		return 0, fmt.Errorf("store: upsert ad group %q: %w", name, err)
	}
	if group.ID == 0 {
		// conflict path: fetch the surviving row
		if err := s.db.WithContext(ctx).Where("name = ?", name).First(&group).Error; err != nil {
			return 0, fmt.Errorf("store: upsert ad group %q: %w", name, err)
		}
	}
	return group.ID, nil
}

// AdGroupsByCategory returns the ad groups under a category ordered by
// name.
func (s *Store) AdGroupsByCategory(ctx context.Context, categoryID uint) ([]AdGroup, error) {
	var groups []AdGroup
	err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("store: ad groups for category %d: %w", categoryID, err)
	}
	return groups, nil
}

// ── Keywords ──

// UpsertKeyword inserts a keyword or moves an existing one under the
// given ad group.
func (s *Store) UpsertKeyword(ctx context.Context, keyword string, adGroupID uint) error {
	kw := Keyword{Keyword: keyword, AdGroupID: adGroupID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword"}},
			DoUpdates: clause.AssignmentColumns([]string{"ad_group_id"}),
		}).
		Create(&kw).Error
	if err != nil {
		return fmt.Errorf("store: upsert keyword %q: %w", keyword, err)
	}
	return nil
}

// KeywordsByCategory returns the flat keyword rows under a category,
// ordered by ad group then keyword.
func (s *Store) KeywordsByCategory(ctx context.Context, categoryID uint) ([]KeywordRow, error) {
	var rows []KeywordRow
	err := s.db.WithContext(ctx).
		Table("keywords").
		Select("keywords.id AS keyword_id, keywords.keyword, ad_groups.id AS ad_group_id, ad_groups.name AS ad_group_name, ad_groups.category_id").
		Joins("JOIN ad_groups ON keywords.ad_group_id = ad_groups.id").
		Where("ad_groups.category_id = ?", categoryID).
		Order("ad_groups.name, keywords.keyword").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: keywords for category %d: %w", categoryID, err)
	}
	return rows, nil
}

// KeywordBatch returns a page of keyword rows ordered by keyword ID,
// for batched pipeline runs.
func (s *Store) KeywordBatch(ctx context.Context, limit, offset int) ([]KeywordRow, error) {
	var rows []KeywordRow
	err := s.db.WithContext(ctx).
		Table("keywords").
		Select("keywords.id AS keyword_id, keywords.keyword, ad_groups.id AS ad_group_id, ad_groups.name AS ad_group_name, ad_groups.category_id").
		Joins("JOIN ad_groups ON keywords.ad_group_id = ad_groups.id").
		Order("keywords.id").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: keyword batch: %w", err)
	}
	return rows, nil
}

// CountKeywords returns the total number of tracked keywords.
func (s *Store) CountKeywords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Keyword{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count keywords: %w", err)
	}
	return n, nil
}

// ── Tree operations ──

// LoadTree reads the full hierarchy ordered by name at every level.
func (s *Store) LoadTree(ctx context.Context) ([]models.Category, error) {
	var cats []Category
	err := s.db.WithContext(ctx).
		Preload("AdGroups", func(db *gorm.DB) *gorm.DB { return db.Order("ad_groups.name") }).
		Preload("AdGroups.Keywords", func(db *gorm.DB) *gorm.DB { return db.Order("keywords.keyword") }).
		Order("name").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("store: load tree: %w", err)
	}
	return toModelTree(cats), nil
}

// ReplaceTree clears the stored hierarchy and writes the given one in
// a single transaction, the way the dashboard autosave syncs its
// in-memory tree.
func (s *Store) ReplaceTree(ctx context.Context, tree []models.Category) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// child tables first so foreign keys never dangle
		for _, table := range []string{"keywords", "ad_groups", "categories"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		for _, cat := range tree {
			row := fromModelCategory(cat)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: replace tree: %w", err)
	}
	return nil
}

// ClearAll truncates the hierarchy.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.ReplaceTree(ctx, nil)
}

// ── Conversions ──

// toModelTree maps stored rows onto the shared domain tree.
func toModelTree(cats []Category) []models.Category {
	out := make([]models.Category, 0, len(cats))
	for _, cat := range cats {
		mc := models.Category{
			ID:       cat.ID,
			Name:     cat.Name,
			AdGroups: make([]models.AdGroup, 0, len(cat.AdGroups)),
		}
		for _, group := range cat.AdGroups {
			mg := models.AdGroup{
				ID:       group.ID,
				Name:     group.Name,
				Keywords: make([]models.Keyword, 0, len(group.Keywords)),
			}
			for _, kw := range group.Keywords {
				mg.Keywords = append(mg.Keywords, models.Keyword{Text: kw.Keyword})
			}
			mc.AdGroups = append(mc.AdGroups, mg)
		}
		out = append(out, mc)
	}
	return out
}

// fromModelCategory maps a domain category onto a row tree GORM can
// insert in one Create.
func fromModelCategory(cat models.Category) Category {
	row := Category{
		Name:     cat.Name,
		AdGroups: make([]AdGroup, 0, len(cat.AdGroups)),
	}
	for _, group := range cat.AdGroups {
		rg := AdGroup{
			Name:     group.Name,
			Keywords: make([]Keyword, 0, len(group.Keywords)),
		}
		for _, kw := range group.Keywords {
			rg.Keywords = append(rg.Keywords, Keyword{Keyword: kw.Text})
		}
		row.AdGroups = append(row.AdGroups, rg)
	}
	return row
}
