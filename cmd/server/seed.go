package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/jaswdr/faker"

	"campusblog/pkg/blog"
	. "campusblog/pkg/common"
	"campusblog/pkg/user"
)

var (
	f             = faker.New()
	onePassForAll = HashPass("sdfsdfsdf", RandStringRunes(8)) // salt must have len of 8
)

type IUserRepo interface {
	Add(context.Context, *user.User) (string, error)
	GetAll(context.Context) ([]*user.User, error)
}

type IBlogCreator interface {
	Create(context.Context, *blog.Blog) (*blog.Blog, error)
}

func createAuthors(ctx context.Context, userRepo IUserRepo) error {
	// User for experiments (not random)
	_, err := userRepo.Add(ctx, &user.User{
		Name:     "Rob Pike",
		Email:    "pike@example.com",
		Password: onePassForAll,
	})
	if err != nil {
		return fmt.Errorf("seed: can't create default user: %w", err)
	}
	for i := 1; i <= 5; i++ {
		if err := genUser(ctx, userRepo); err != nil {
			return err
		}
	}
	return nil
}

// seed goes through the blog service so slugs and counters are set the
// same way as for real requests.
func seed(ctx context.Context, userRepo IUserRepo, blogs IBlogCreator) error {
	authors, err := userRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: can't get all authors: %w", err)
	}

	if len(authors) == 0 {
		if err := createAuthors(ctx, userRepo); err != nil {
			return err
		}
		if authors, err = userRepo.GetAll(ctx); err != nil {
			return fmt.Errorf("seed: can't get all authors: %w", err)
		}
	}

	for i := 0; i <= 5; i++ {
		if _, err := blogs.Create(ctx, genBlog(authors)); err != nil {
			return fmt.Errorf("seed: can't add blog: %w", err)
		}
	}
	return nil
}

func randType() blog.Type {
	types := []blog.Type{blog.TypeComplaint, blog.TypeArticle}
	return types[rand.Intn(2)]
}

func genUser(ctx context.Context, userRepo IUserRepo) error {
	p := f.Person()
	u := user.User{
		Name:       p.Name(),
		Email:      strings.ToLower(p.FirstName()) + "." + RandStringRunes(4) + "@example.com",
		Password:   onePassForAll,
		RollNumber: fmt.Sprintf("CS-%03d", rand.Intn(1000)),
	}
	if _, err := userRepo.Add(ctx, &u); err != nil {
		return fmt.Errorf("seed: can't add user: %w", err)
	}
	return nil
}

// genTitle keeps within the 50 characters a title may have.
func genTitle() string {
	title := strings.Join(f.Lorem().Words(rand.Intn(4)+2), " ")
	if len(title) > 50 {
		title = strings.TrimSpace(title[:50])
	}
	return title
}

func genText() string {
	return f.Lorem().Paragraph(rand.Intn(3) + 2)
}

func genBlog(users []*user.User) *blog.Blog {
	return &blog.Blog{
		Title: genTitle(),
		Text:  genText(),
		Tags:  strings.Join(f.Lorem().Words(2), ","),
		Type:  randType(),
		User:  randUser(users).Id,
	}
}

func randUser(users []*user.User) *user.User {
	idx := rand.Intn(len(users))
	return users[idx]
}
