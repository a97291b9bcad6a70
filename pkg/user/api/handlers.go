package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"campusblog/pkg/common"
	"campusblog/pkg/logger"
	"campusblog/pkg/user"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers_test.go -package=api

const msgEmailTaken = "Email already in use"

type (
	UserRepo interface {
		EmailExists(context.Context, string) (bool, error)
		Add(context.Context, *user.User) (string, error)
		GetById(context.Context, string) (*user.User, error)
	}

	UserHandler struct {
		Repo     UserRepo
		validate *validator.Validate
	}

	SignupRequest struct {
		Name            string `json:"name" validate:"required"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8"`
		PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	}
)

var signupMessages = map[string]string{
	"Name.required":            "Please tell us your name!",
	"Email.required":           "Please provide your email",
	"Email.email":              "Please provide a valid email",
	"Password.required":        "Please provide a password",
	"Password.min":             "Password must have at least 8 characters",
	"PasswordConfirm.required": "Please confirm your password",
	"PasswordConfirm.eqfield":  "Passwords are not the same!",
}

func NewUserHandler(r UserRepo) *UserHandler {
	return &UserHandler{
		Repo:     r,
		validate: validator.New(),
	}
}

func (uh UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req := new(SignupRequest)
	if err := common.ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Errorf("can't parse request body as signup: %v", err)
		common.WriteMsg(w, "bad request format", http.StatusBadRequest)
		return
	}

	if msg := uh.invalid(req); msg != "" {
		common.WriteMsg(w, msg, http.StatusBadRequest)
		return
	}

	exists, err := uh.Repo.EmailExists(r.Context(), req.Email)
	if err != nil {
		logger.Log(r.Context()).Errorf("user/handlers: can't check email: %v", err)
		common.WriteMsg(w, "can't add user", http.StatusInternalServerError)
		return
	}
	if exists {
		logger.Log(r.Context()).Infof("user/handlers: signup with taken email %s", req.Email)
		common.WriteMsg(w, msgEmailTaken, http.StatusBadRequest)
		return
	}

	salt := common.RandStringRunes(8)
	u := &user.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: common.HashPass(req.Password, salt),
		Photo:    user.DefaultPhoto,
		// Id is handled below
	}
	id, err := uh.Repo.Add(r.Context(), u)
	if err != nil {
		// Lost the race against another signup with the same email.
		if errors.Is(err, user.ErrEmailTaken) {
			common.WriteMsg(w, msgEmailTaken, http.StatusBadRequest)
			return
		}
		logger.Log(r.Context()).Errorf("user/handlers: can't add user: %v", err)
		common.WriteMsg(w, "can't add user", http.StatusInternalServerError)
		return
	}
	u.Id = id

	common.WriteData(w, map[string]*user.User{"user": u}, http.StatusCreated)
}

func (uh UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["user_id"]
	u, err := uh.Repo.GetById(r.Context(), uid)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			common.WriteMsg(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Log(r.Context()).Errorf("user/handlers: can't get user %s: %v", uid, err)
		common.WriteMsg(w, "failed loading user", http.StatusInternalServerError)
		return
	}
	common.WriteData(w, map[string]*user.User{"user": u}, http.StatusOK)
}

// invalid returns the message for the first failed rule, or "".
func (uh UserHandler) invalid(req *SignupRequest) string {
	err := uh.validate.Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid signup data"
	}
	fe := verrs[0]
	if msg, ok := signupMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Error()
}
