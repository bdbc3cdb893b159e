package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookie = "flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// Flasher stores flashes in an HMAC-signed cookie.
type Flasher struct {
	secret []byte
}

func NewFlasher(secret string) *Flasher {
	return &Flasher{secret: []byte(secret)}
}

// Add queues a flash for the next page, after any flashes the request
// arrived with.
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := f.read(r)
	flashes = append(flashes, Flash{Category: category, Message: message})
	f.write(w, flashes)
}

// Pop returns and clears the queued flashes.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := f.read(r)
	if len(flashes) > 0 {
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	return flashes
}

func (f *Flasher) read(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(f.sign(payload))) {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

func (f *Flasher) write(w http.ResponseWriter, flashes []Flash) {
	raw, _ := json.Marshal(flashes)
	payload := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    payload + "." + f.sign(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (f *Flasher) sign(payload string) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
