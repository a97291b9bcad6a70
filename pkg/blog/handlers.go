package blog

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	. "campusblog/pkg/common"
	"campusblog/pkg/logger"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers_test.go -package=blog IBlogService
type IBlogService interface {
	Create(context.Context, *Blog) (*Blog, error)
	Get(context.Context, primitive.ObjectID) (*Blog, error)
	List(context.Context, Filter) ([]*Blog, error)
	Update(context.Context, primitive.ObjectID, Patch) (*Blog, error)
	Upvote(context.Context, primitive.ObjectID) (*Blog, error)
	Delete(context.Context, primitive.ObjectID) error
}

type BlogHandler struct {
	Service IBlogService
}

func NewBlogHandler(s IBlogService) *BlogHandler {
	return &BlogHandler{
		Service: s,
	}
}

// CreateRequest is the accepted body of POST /blogs.
type CreateRequest struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Tags   string `json:"tags"`
	Type   Type   `json:"blogType"`
	Status Status `json:"blogStatus"`
	User   string `json:"user"`
}

func (bh *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Type:   Type(q.Get("blogType")),
		Status: Status(q.Get("blogStatus")),
		UserId: q.Get("user"),
	}
	bh.list(w, r, f)
}

func (bh *BlogHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	bh.list(w, r, Filter{UserId: mux.Vars(r)["user_id"]})
}

func (bh *BlogHandler) list(w http.ResponseWriter, r *http.Request, f Filter) {
	blogs, err := bh.Service.List(r.Context(), f)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load blogs: %v", err)
		WriteMsg(w, "failed loading blogs", http.StatusInternalServerError)
		return
	}
	WriteList(w, map[string][]*Blog{"blogs": blogs}, len(blogs))
}

func (bh *BlogHandler) Add(w http.ResponseWriter, r *http.Request) {
	req := new(CreateRequest)
	if err := ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse blog from request body: %v", err)
		WriteMsg(w, "can't parse blog", http.StatusBadRequest)
		return
	}

	b := &Blog{
		Title:  req.Title,
		Text:   req.Text,
		Tags:   req.Tags,
		Type:   req.Type,
		Status: req.Status,
		User:   req.User,
	}
	created, err := bh.Service.Create(r.Context(), b)
	if err != nil {
		bh.fail(w, r, "failed adding blog", err)
		return
	}

	WriteData(w, map[string]*Blog{"blog": created}, http.StatusCreated)
}

func (bh *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bh.blogId(w, r)
	if !ok {
		return
	}
	b, err := bh.Service.Get(r.Context(), id)
	if err != nil {
		bh.fail(w, r, "failed loading blog", err)
		return
	}
	WriteData(w, map[string]*Blog{"blog": b}, http.StatusOK)
}

func (bh *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bh.blogId(w, r)
	if !ok {
		return
	}
	p := Patch{}
	if err := ParseReqBody(r.Body, &p); err != nil {
		logger.Log(r.Context()).Errorf("can't parse blog patch: %v", err)
		WriteMsg(w, "can't parse blog", http.StatusBadRequest)
		return
	}
	b, err := bh.Service.Update(r.Context(), id, p)
	if err != nil {
		bh.fail(w, r, "failed updating blog", err)
		return
	}
	WriteData(w, map[string]*Blog{"blog": b}, http.StatusOK)
}

func (bh *BlogHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	id, ok := bh.blogId(w, r)
	if !ok {
		return
	}
	b, err := bh.Service.Upvote(r.Context(), id)
	if err != nil {
		bh.fail(w, r, "voting failed", err)
		return
	}
	WriteData(w, map[string]*Blog{"blog": b}, http.StatusOK)
}

func (bh *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bh.blogId(w, r)
	if !ok {
		return
	}
	if err := bh.Service.Delete(r.Context(), id); err != nil {
		bh.fail(w, r, "removing blog failed", err)
		return
	}
	WriteMsg(w, "success", http.StatusOK)
}

func (bh *BlogHandler) blogId(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := ParseId(mux.Vars(r)["blog_id"])
	if err != nil {
		WriteMsg(w, "invalid blog id", http.StatusBadRequest)
		return id, false
	}
	return id, true
}

// fail maps service errors to the response status.
func (bh *BlogHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		WriteMsg(w, vErr.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrOwnerNotFound):
		WriteMsg(w, "A blog must belong to an existing user", http.StatusBadRequest)
	case errors.Is(err, ErrEmptyPatch):
		WriteMsg(w, "nothing to update", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		WriteMsg(w, "blog not found", http.StatusNotFound)
	default:
		logger.Log(r.Context()).Errorf("%s: %v", msg, err)
		WriteMsg(w, msg, http.StatusInternalServerError)
	}
}
