// Package seed fills a store with demo users, posts, likes and comments.
// Posts, likes and comments go through the usecases so counters and events
// behave exactly as they do for API traffic.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"
	"blogfeed/services/feed/internal/usecase"

	"golang.org/x/crypto/bcrypt"
)

const DefaultPassword = "password123"

type User struct {
	ID       string
	Username string
}

type Options struct {
	// FetchImages attaches a picture from cataas.com to every other post.
	FetchImages bool
	HTTPClient  *http.Client
}

type testUser struct {
	email     string
	username  string
	firstName string
	lastName  string
}

var testUsers = []testUser{
	{"alice@test.com", "alice", "Alice", "Liddell"},
	{"bob@test.com", "bob", "Bob", "Marley"},
	{"charlie@test.com", "charlie", "Charlie", ""},
	{"diana@test.com", "diana", "", ""},
	{"eve@test.com", "eve", "Eve", "Online"},
}

type Seeder struct {
	users    persistent.UserWriter
	profiles usecase.ProfileResolver
	posts    usecase.PostUseCase
	comments usecase.CommentUseCase
	opts     Options
	logger   *logger.Logger
}

func NewSeeder(
	users persistent.UserWriter,
	profiles usecase.ProfileResolver,
	posts usecase.PostUseCase,
	comments usecase.CommentUseCase,
	opts Options,
	logger *logger.Logger,
) *Seeder {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Seeder{
		users:    users,
		profiles: profiles,
		posts:    posts,
		comments: comments,
		opts:     opts,
		logger:   logger,
	}
}

// Run is idempotent for users: existing usernames are reused. Content is
// only created for users that did not exist before.
func (s *Seeder) Run(ctx context.Context) ([]User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	seeded := make([]User, 0, len(testUsers))
	var fresh []User

	for _, u := range testUsers {
		id, err := s.users.CreateUser(ctx, persistent.NewUser{
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hashedPassword),
			FirstName:    u.firstName,
			LastName:     u.lastName,
		})
		if errors.Is(err, entity.ErrConflict) {
			profile, lookupErr := s.profiles.GetProfileByUsername(ctx, u.username)
			if lookupErr != nil {
				return seeded, fmt.Errorf("failed to load existing user %s: %w", u.username, lookupErr)
			}
			s.logger.Info("User %s already exists, skipping", u.username)
			seeded = append(seeded, User{ID: profile.ID, Username: profile.Username})
			continue
		}
		if err != nil {
			return seeded, fmt.Errorf("failed to create user %s: %w", u.username, err)
		}

		s.logger.Info("Created user: %s (%s)", u.username, u.email)
		user := User{ID: id, Username: u.username}
		seeded = append(seeded, user)
		fresh = append(fresh, user)
	}

	var postIDs []string
	for i, user := range fresh {
		count := 2 + i%3
		for j := 0; j < count; j++ {
			post, err := s.createPost(ctx, user, j)
			if err != nil {
				s.logger.Error("Failed to create post %d for user %s: %v", j+1, user.Username, err)
				continue
			}
			postIDs = append(postIDs, post.ID)
		}
	}

	s.interact(ctx, seeded, postIDs)
	return seeded, nil
}

func (s *Seeder) createPost(ctx context.Context, user User, index int) (*entity.Post, error) {
	var image *entity.ImageUpload
	if s.opts.FetchImages && index%2 == 0 {
		data, err := s.fetchCat(ctx, user.Username)
		if err != nil {
			s.logger.Warn("Posting without image: %v", err)
		} else {
			image = &entity.ImageUpload{
				Filename:    fmt.Sprintf("seed_%d.jpg", index),
				ContentType: "image/jpeg",
				Body:        bytes.NewReader(data),
			}
		}
	}

	post, err := s.posts.CreatePost(ctx, user.ID,
		fmt.Sprintf("Post #%d by %s", index+1, user.Username),
		fmt.Sprintf("Demo post number %d written by %s.", index+1, user.Username),
		image,
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created post: %s by %s", post.Title, user.Username)
	return post, nil
}

// interact spreads likes and comments deterministically over the posts.
func (s *Seeder) interact(ctx context.Context, users []User, postIDs []string) {
	for i, postID := range postIDs {
		for j, user := range users {
			if (i+j)%2 == 0 {
				if _, err := s.posts.ToggleLike(ctx, postID, user.ID); err != nil {
					s.logger.Error("Failed to like post %s as %s: %v", postID, user.Username, err)
				}
			}
			if (i+j)%3 == 0 {
				text := fmt.Sprintf("Nice one! (from %s)", user.Username)
				if _, err := s.comments.AddComment(ctx, postID, user.ID, text); err != nil {
					s.logger.Error("Failed to comment on post %s as %s: %v", postID, user.Username, err)
				}
			}
		}
	}
	s.logger.Info("Created likes and comments on %d posts", len(postIDs))
}

func (s *Seeder) fetchCat(ctx context.Context, username string) ([]byte, error) {
	url := fmt.Sprintf("https://cataas.com/cat/says/Hello%%20from%%20%s", username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cat image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cataas API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty image data")
	}
	return data, nil
}
