package common

import (
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"

	"golang.org/x/crypto/argon2"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type Msg struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Data struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data"`
}

// WriteMsg replies with {"status", "message"}. The status is derived from the
// code: 4xx is "fail", 5xx is "error".
func WriteMsg(w http.ResponseWriter, msg string, code int) {
	status := StatusSuccess
	switch {
	case code >= 500:
		status = StatusError
	case code >= 400:
		status = StatusFail
	}
	WriteRespJSON(w, Msg{Status: status, Message: msg}, code)
}

func WriteData(w http.ResponseWriter, data interface{}, code int) {
	WriteRespJSON(w, Data{Status: StatusSuccess, Data: data}, code)
}

func WriteList(w http.ResponseWriter, data interface{}, n int) {
	WriteRespJSON(w, Data{Status: StatusSuccess, Results: &n, Data: data}, http.StatusOK)
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func RandStringRunes(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

// HashPass returns salt followed by the argon2id key. Salt must have len of 8.
func HashPass(plainPassword, salt string) []byte {
	hashedPass := argon2.IDKey([]byte(plainPassword), []byte(salt), 1, 64*1024, 4, 32)
	res := []byte(salt)
	return append(res, hashedPass...)
}

func ParseReqBody(body io.Reader, ptr interface{}) error {
	return json.NewDecoder(body).Decode(ptr)
}

// WriteRespJSON marshals data before the header goes out, so a value that
// can't be encoded still gets a 500.
func WriteRespJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	resp, err := json.Marshal(data)
	if err != nil {
		log.Println("common: JSON marshaling failed", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"response failed"}`))
		return
	}

	w.WriteHeader(code)
	if _, err := w.Write(resp); err != nil {
		log.Println("common: failed writing response", err)
	}
}
