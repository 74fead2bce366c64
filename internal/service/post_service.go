package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront-admin/internal/domain"
	"storefront-admin/internal/repository"
)

// PostInput carries the editable fields of a listing.
type PostInput struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required,max=5000"`
	Price       string `validate:"required,max=64"`
	Image       string `validate:"max=2048"`
	Contact     string `validate:"required,max=200"`
	Category    string `validate:"max=100"`
}

// PostPatch updates only the fields that are non-nil.
type PostPatch struct {
	Title       *string
	Description *string
	Price       *string
	Image       *string
	Contact     *string
	Category    *string
}

// PostService coordinates listing management backed by the post repository.
type PostService interface {
	CreatePost(ctx context.Context, input PostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, id int64, patch PostPatch) (*domain.Post, error)
	TogglePost(ctx context.Context, id int64) (*domain.Post, error)
	DeletePost(ctx context.Context, id int64) (*domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	ListPublic(ctx context.Context) ([]domain.Post, error)
	ListAll(ctx context.Context) ([]domain.Post, error)
}

type postService struct {
	posts    repository.PostRepository
	validate *validator.Validate
}

func NewPostService(posts repository.PostRepository) PostService {
	return &postService{
		posts:    posts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *postService) CreatePost(ctx context.Context, input PostInput) (*domain.Post, error) {
	input = normalizeInput(input)
	if err := s.check(input); err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
		Contact:     input.Contact,
		Category:    input.Category,
		IsActive:    true,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, storeError("create post", err)
	}
	return post, nil
}

func (s *postService) UpdatePost(ctx context.Context, id int64, patch PostPatch) (*domain.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	input := PostInput{
		Title:       pick(patch.Title, post.Title),
		Description: pick(patch.Description, post.Description),
		Price:       pick(patch.Price, post.Price),
		Image:       pick(patch.Image, post.Image),
		Contact:     pick(patch.Contact, post.Contact),
		Category:    pick(patch.Category, post.Category),
	}
	input = normalizeInput(input)
	if err := s.check(input); err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Description = input.Description
	post.Price = input.Price
	post.Image = input.Image
	post.Contact = input.Contact
	post.Category = input.Category
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, s.wrap("update post", err)
	}
	return post, nil
}

func (s *postService) TogglePost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post.IsActive = !post.IsActive
	if err := s.posts.SetActive(ctx, id, post.IsActive); err != nil {
		return nil, s.wrap("toggle post", err)
	}
	return post, nil
}

// DeletePost removes the post and returns it so callers can release
// resources it referenced, such as an uploaded image.
func (s *postService) DeletePost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, s.wrap("delete post", err)
	}
	return post, nil
}

func (s *postService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("get post", err)
	}
	return post, nil
}

func (s *postService) ListPublic(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx, false)
	if err != nil {
		return nil, storeError("list posts", err)
	}
	return posts, nil
}

func (s *postService) ListAll(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx, true)
	if err != nil {
		return nil, storeError("list posts", err)
	}
	return posts, nil
}

func (s *postService) check(input PostInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate post: %w", err)
	}
	var missing, invalid []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			missing = append(missing, field)
		} else {
			invalid = append(invalid, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s too long", ErrInvalidInput, strings.Join(invalid, ", "))
}

func (s *postService) wrap(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	return storeError(op, err)
}

func normalizeInput(input PostInput) PostInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Price = strings.TrimSpace(input.Price)
	input.Image = strings.TrimSpace(input.Image)
	input.Contact = strings.TrimSpace(input.Contact)
	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		input.Category = domain.DefaultPostCategory
	}
	return input
}

func pick(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
