package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFeedUseCase struct {
	mock.Mock
}

func (m *MockFeedUseCase) GetPostDetail(ctx context.Context, postID, viewerID string) (*entity.PostDetail, error) {
	args := m.Called(ctx, postID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PostDetail), args.Error(1)
}

func (m *MockFeedUseCase) GetGlobalFeed(ctx context.Context, viewerID string, pageIndex, pageSize int) (*entity.FeedPage, error) {
	args := m.Called(ctx, viewerID, pageIndex, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FeedPage), args.Error(1)
}

func (m *MockFeedUseCase) GetAuthorFeed(ctx context.Context, username string, pageIndex, pageSize int, requesterID string) (*entity.AuthorFeed, error) {
	args := m.Called(ctx, username, pageIndex, pageSize, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AuthorFeed), args.Error(1)
}

func (m *MockFeedUseCase) GetLikedFeed(ctx context.Context, userID string, pageIndex, pageSize int) (*entity.FeedPage, error) {
	args := m.Called(ctx, userID, pageIndex, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FeedPage), args.Error(1)
}

func (m *MockFeedUseCase) ListComments(ctx context.Context, postID string, pageIndex, pageSize int) (*entity.CommentPage, error) {
	args := m.Called(ctx, postID, pageIndex, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CommentPage), args.Error(1)
}

func (m *MockFeedUseCase) GetPostForEdit(ctx context.Context, postID, requesterID string) (*entity.EditView, error) {
	args := m.Called(ctx, postID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EditView), args.Error(1)
}

type MockPostUseCase struct {
	mock.Mock
}

func (m *MockPostUseCase) CreatePost(ctx context.Context, authorID, title, body string, image *entity.ImageUpload) (*entity.Post, error) {
	args := m.Called(ctx, authorID, title, body, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Post), args.Error(1)
}

func (m *MockPostUseCase) EditPost(ctx context.Context, postID, requesterID string, edit entity.PostEdit) (*entity.Post, error) {
	args := m.Called(ctx, postID, requesterID, edit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Post), args.Error(1)
}

func (m *MockPostUseCase) DeletePost(ctx context.Context, postID, requesterID string) error {
	args := m.Called(ctx, postID, requesterID)
	return args.Error(0)
}

func (m *MockPostUseCase) ToggleLike(ctx context.Context, postID, userID string) (*entity.ToggleResult, error) {
	args := m.Called(ctx, postID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ToggleResult), args.Error(1)
}

type MockCommentUseCase struct {
	mock.Mock
}

func (m *MockCommentUseCase) AddComment(ctx context.Context, postID, authorID, text string) (*entity.Comment, error) {
	args := m.Called(ctx, postID, authorID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Comment), args.Error(1)
}

func (m *MockCommentUseCase) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	args := m.Called(ctx, commentID, requesterID)
	return args.Error(0)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) StoreImage(ctx context.Context, upload entity.ImageUpload) (string, error) {
	args := m.Called(ctx, upload)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) ReadImage(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockFileStore) DeleteImage(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

var (
	_ usecase.FeedUseCase    = (*MockFeedUseCase)(nil)
	_ usecase.PostUseCase    = (*MockPostUseCase)(nil)
	_ usecase.CommentUseCase = (*MockCommentUseCase)(nil)
	_ usecase.FileStore      = (*MockFileStore)(nil)
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func asUser(userID string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		h(c)
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: title is required", entity.ErrInvalid), http.StatusBadRequest, "invalid"},
		{fmt.Errorf("%w: not yours", entity.ErrForbidden), http.StatusForbidden, "forbidden"},
		{entity.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: bob", entity.ErrUserNotFound), http.StatusNotFound, "user_not_found"},
		{fmt.Errorf("%w: duplicate key", entity.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: dial tcp: refused", entity.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, code, message := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
			assert.NotContains(t, message, "dial tcp")
			assert.NotContains(t, message, "duplicate key")
		})
	}
}

func TestGetGlobalFeed_DefaultsAndViewer(t *testing.T) {
	mockFeed := new(MockFeedUseCase)
	handler := NewFeedHandler(mockFeed, 10, logger.New())

	router := setupTestRouter()
	router.GET("/posts", asUser("viewer-1", handler.GetGlobalFeed))

	page := &entity.FeedPage{Items: []*entity.PostDetail{}, PageIndex: 0, PageSize: 10}
	mockFeed.On("GetGlobalFeed", mock.Anything, "viewer-1", 0, 10).Return(page, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(10), body["page_size"])
	mockFeed.AssertExpectations(t)
}

func TestGetGlobalFeed_BadQuery(t *testing.T) {
	mockFeed := new(MockFeedUseCase)
	handler := NewFeedHandler(mockFeed, 10, logger.New())

	router := setupTestRouter()
	router.GET("/posts", handler.GetGlobalFeed)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts?pageIndex=abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid", decode(t, w)["code"])
	mockFeed.AssertNotCalled(t, "GetGlobalFeed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetGlobalFeed_OutOfRange(t *testing.T) {
	mockFeed := new(MockFeedUseCase)
	handler := NewFeedHandler(mockFeed, 10, logger.New())

	router := setupTestRouter()
	router.GET("/posts", handler.GetGlobalFeed)

	mockFeed.On("GetGlobalFeed", mock.Anything, "", 0, 500).
		Return(nil, fmt.Errorf("%w: pageSize must be between 1 and 100", entity.ErrInvalid))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts?pageSize=500", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid", body["code"])
	assert.Contains(t, body["error"], "pageSize")
	mockFeed.AssertExpectations(t)
}

func TestGetPost_NotFound(t *testing.T) {
	mockFeed := new(MockFeedUseCase)
	handler := NewFeedHandler(mockFeed, 10, logger.New())

	router := setupTestRouter()
	router.GET("/posts/:id", handler.GetPost)

	mockFeed.On("GetPostDetail", mock.Anything, "post-404", "").Return(nil, entity.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/posts/post-404", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["code"])
	mockFeed.AssertExpectations(t)
}

func TestGetAuthorFeed_UnknownUser(t *testing.T) {
	mockFeed := new(MockFeedUseCase)
	handler := NewFeedHandler(mockFeed, 10, logger.New())

	router := setupTestRouter()
	router.GET("/users/:username/posts", handler.GetAuthorFeed)

	mockFeed.On("GetAuthorFeed", mock.Anything, "ghost", 1, 5, "").
		Return(nil, fmt.Errorf("%w: ghost", entity.ErrUserNotFound))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/users/ghost/posts?pageIndex=1&pageSize=5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user_not_found", decode(t, w)["code"])
	mockFeed.AssertExpectations(t)
}

func TestCreatePost_JSON(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.POST("/posts", asUser("author-1", handler.CreatePost))

	post := &entity.Post{ID: "post-1", Title: "Hello", Body: "World", AuthorID: "author-1"}
	mockPosts.On("CreatePost", mock.Anything, "author-1", "Hello", "World", (*entity.ImageUpload)(nil)).Return(post, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", bytes.NewBufferString(`{"title":"Hello","body":"World"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "post-1", decode(t, w)["id"])
	mockPosts.AssertExpectations(t)
}

func TestCreatePost_MultipartWithImage(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.POST("/posts", asUser("author-1", handler.CreatePost))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Pic"))
	require.NoError(t, mw.WriteField("body", "Look"))
	part, err := mw.CreateFormFile("image", "cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	hasImage := mock.MatchedBy(func(img *entity.ImageUpload) bool {
		return img != nil && img.Filename == "cat.png"
	})
	mockPosts.On("CreatePost", mock.Anything, "author-1", "Pic", "Look", hasImage).
		Return(&entity.Post{ID: "post-2", ImageRef: "posts/x.png"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockPosts.AssertExpectations(t)
}

func TestCreatePost_Invalid(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.POST("/posts", asUser("author-1", handler.CreatePost))

	mockPosts.On("CreatePost", mock.Anything, "author-1", "", "x", (*entity.ImageUpload)(nil)).
		Return(nil, fmt.Errorf("%w: title is required", entity.ErrInvalid))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts", bytes.NewBufferString(`{"body":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid argument: title is required", decode(t, w)["error"])
}

func TestUpdatePost_Forbidden(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.PUT("/posts/:id", asUser("intruder", handler.UpdatePost))

	title := "mine now"
	edit := entity.PostEdit{Title: &title}
	mockPosts.On("EditPost", mock.Anything, "post-1", "intruder", edit).
		Return(nil, fmt.Errorf("%w: only the author can change this post", entity.ErrForbidden))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/posts/post-1", bytes.NewBufferString(`{"title":"mine now"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w)["code"])
	mockPosts.AssertExpectations(t)
}

func TestDeletePost_NoContent(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.DELETE("/posts/:id", asUser("author-1", handler.DeletePost))

	mockPosts.On("DeletePost", mock.Anything, "post-1", "author-1").Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/posts/post-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockPosts.AssertExpectations(t)
}

func TestToggleLike_StorageUnavailable(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.POST("/posts/:id/like", asUser("user-1", handler.ToggleLike))

	mockPosts.On("ToggleLike", mock.Anything, "post-1", "user-1").
		Return(nil, fmt.Errorf("failed to update like count: %w: i/o timeout", entity.ErrStorageUnavailable))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/post-1/like", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "storage_unavailable", body["code"])
	assert.NotContains(t, body["error"], "i/o timeout")
}

func TestToggleLike_Success(t *testing.T) {
	mockPosts := new(MockPostUseCase)
	handler := NewPostHandler(mockPosts, logger.New())

	router := setupTestRouter()
	router.POST("/posts/:id/like", asUser("user-1", handler.ToggleLike))

	mockPosts.On("ToggleLike", mock.Anything, "post-1", "user-1").
		Return(&entity.ToggleResult{Liked: true, LikeCount: 3}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/post-1/like", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(3), body["like_count"])
	mockPosts.AssertExpectations(t)
}

func TestAddComment(t *testing.T) {
	mockComments := new(MockCommentUseCase)
	handler := NewCommentHandler(mockComments, logger.New())

	router := setupTestRouter()
	router.POST("/posts/:id/comments", asUser("user-1", handler.AddComment))

	mockComments.On("AddComment", mock.Anything, "post-1", "user-1", "nice").
		Return(&entity.Comment{ID: "c-1", PostID: "post-1", AuthorID: "user-1", Text: "nice"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/posts/post-1/comments", bytes.NewBufferString(`{"text":"nice"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c-1", decode(t, w)["id"])
	mockComments.AssertExpectations(t)
}

func TestDeleteComment_Forbidden(t *testing.T) {
	mockComments := new(MockCommentUseCase)
	handler := NewCommentHandler(mockComments, logger.New())

	router := setupTestRouter()
	router.DELETE("/comments/:id", asUser("stranger", handler.DeleteComment))

	mockComments.On("DeleteComment", mock.Anything, "c-1", "stranger").Return(entity.ErrForbidden)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/comments/c-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockComments.AssertExpectations(t)
}

func TestGetImage(t *testing.T) {
	mockFiles := new(MockFileStore)
	handler := NewImageHandler(mockFiles, logger.New())

	router := setupTestRouter()
	router.GET("/images/*ref", handler.GetImage)

	mockFiles.On("ReadImage", mock.Anything, "posts/abc.png").
		Return(io.NopCloser(strings.NewReader("png bytes")), "image/png", nil)
	mockFiles.On("ReadImage", mock.Anything, "posts/missing.png").
		Return(nil, "", entity.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/images/posts/abc.png", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/images/posts/missing.png", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockFiles.AssertExpectations(t)
}
