package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"postboard/pkg/domain"
)

// GormStore implements Store using GORM, backed by Postgres or SQLite
// depending on the DSN scheme.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and runs auto-migrations. DSNs starting
// with postgres:// use the Postgres driver; sqlite://<path> uses the
// pure-Go SQLite driver.
func NewGormStore(dsn string) (*GormStore, error) {
	dialector, isSQLite, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if isSQLite {
		// sqlite connections do not share an in-memory database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	if err := db.AutoMigrate(&UserModel{}, &PostModel{}, &VoteModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), false, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported database URL %q: want postgres:// or sqlite://", dsn)
	}
}

// CreateUser inserts a user and returns it with the store-assigned id.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	model.ID = 0
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by id.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreatePost inserts a post and returns it with the store-assigned id.
func (s *GormStore) CreatePost(p domain.Post) (domain.Post, error) {
	model := postToModel(p)
	model.ID = 0
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Post{}, err
	}
	return postFromModel(model), nil
}

// ratedPosts selects posts joined with their vote counts.
func (s *GormStore) ratedPosts() *gorm.DB {
	return s.db.Model(&PostModel{}).
		Select("posts.id, posts.title, posts.content, posts.published, posts.user_id, posts.created_at, COUNT(votes.post_id) AS votes").
		Joins("LEFT JOIN votes ON votes.post_id = posts.id").
		Group("posts.id")
}

type ratedPostRow struct {
	ID        int64
	Title     string
	Content   string
	Published bool
	UserID    int64
	CreatedAt time.Time
	Votes     int64
}

// GetPost returns one post with its vote count.
func (s *GormStore) GetPost(id int64) (domain.RatedPost, bool, error) {
	var row ratedPostRow
	if err := s.ratedPosts().Where("posts.id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RatedPost{}, false, nil
		}
		return domain.RatedPost{}, false, err
	}
	return ratedPostFromRow(row), true, nil
}

// ListPosts returns posts with vote counts, filtered and paged.
func (s *GormStore) ListPosts(filter PostFilter) ([]domain.RatedPost, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	query := s.ratedPosts().Order("posts.id ASC").Limit(limit).Offset(skip)
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(posts.title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var rows []ratedPostRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RatedPost, 0, len(rows))
	for _, row := range rows {
		res = append(res, ratedPostFromRow(row))
	}
	return res, nil
}

// UpdatePost applies the non-nil fields and returns the updated post.
// Returns ErrNotFound when the post does not exist.
func (s *GormStore) UpdatePost(id int64, update PostUpdate) (domain.Post, error) {
	fields := map[string]any{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Content != nil {
		fields["content"] = *update.Content
	}
	if update.Published != nil {
		fields["published"] = *update.Published
	}
	if len(fields) > 0 {
		res := s.db.Model(&PostModel{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return domain.Post{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Post{}, ErrNotFound
		}
	}
	var model PostModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, ErrNotFound
		}
		return domain.Post{}, err
	}
	return postFromModel(model), nil
}

// DeletePost removes a post and its votes in one transaction.
func (s *GormStore) DeletePost(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&VoteModel{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&PostModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateVote inserts an upvote. Concurrent duplicates resolve on the
// composite primary key, not in application code.
func (s *GormStore) CreateVote(v domain.Vote) error {
	model := VoteModel{UserID: v.UserID, PostID: v.PostID}
	if err := s.db.Omit(clause.Associations).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateVote
		}
		return err
	}
	return nil
}

// DeleteVote removes an upvote; ErrNotFound when none exists.
func (s *GormStore) DeleteVote(userID, postID int64) error {
	res := s.db.Delete(&VoteModel{}, "user_id = ? AND post_id = ?", userID, postID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:          u.ID,
		Email:       u.Email,
		Password:    u.PasswordHash,
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.Password,
		PhoneNumber:  m.PhoneNumber,
		CreatedAt:    m.CreatedAt,
	}
}

func postToModel(p domain.Post) PostModel {
	return PostModel{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Published: p.Published,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		Published: m.Published,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

func ratedPostFromRow(row ratedPostRow) domain.RatedPost {
	return domain.RatedPost{
		Post: domain.Post{
			ID:        row.ID,
			Title:     row.Title,
			Content:   row.Content,
			Published: row.Published,
			UserID:    row.UserID,
			CreatedAt: row.CreatedAt,
		},
		Votes: row.Votes,
	}
}
