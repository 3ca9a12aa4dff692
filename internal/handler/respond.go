package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reception-desk/api/internal/database"
	"github.com/reception-desk/api/internal/enum"
)

// maxBodyBytes caps every request body read by the handlers.
const maxBodyBytes = 1 << 20

const flashCookieName = "flash"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": msg})
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// wantsJSON reports whether the caller is a script rather than a browser
// form: an XHR request, or one that sends or accepts JSON.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if isJSONBody(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}

// respond sends payload to script callers, and redirects browser callers to
// target with message stored as a flash.
func respond(w http.ResponseWriter, r *http.Request, status int, payload map[string]interface{}, target, message string, secure bool) {
	if wantsJSON(r) {
		writeJSON(w, status, payload)
		return
	}
	if message != "" {
		setFlash(w, message, secure)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// --- Flash messages ---

func setFlash(w http.ResponseWriter, msg string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

// --- Request parsing ---

var errEmptyBody = errors.New("empty body")

// readFields reads a flat form from either a JSON object or an urlencoded /
// multipart body. JSON numbers and booleans are returned in their text form.
func readFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if !isJSONBody(r) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out, nil
}

func orderIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// --- Responses ---

type orderResponse struct {
	ID                 int64      `json:"id"`
	UserID             *uuid.UUID `json:"user_id"`
	Items              string     `json:"items"`
	Total              string     `json:"total"`
	Status             string     `json:"status"`
	PaymentMethod      string     `json:"payment_method"`
	PaymentMethodLabel string     `json:"payment_method_label"`
	PaymentStatus      string     `json:"payment_status"`
	TransactionRef     *string    `json:"transaction_ref"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                 o.ID,
		Items:              o.Items,
		Total:              database.NumericString(o.Total),
		Status:             o.Status,
		PaymentMethod:      o.PaymentMethod,
		PaymentMethodLabel: enum.PaymentMethodLabel(o.PaymentMethod),
		PaymentStatus:      o.PaymentStatus,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.UserID.Valid {
		id := uuid.UUID(o.UserID.Bytes)
		resp.UserID = &id
	}
	if o.TransactionRef.Valid {
		ref := o.TransactionRef.String
		resp.TransactionRef = &ref
	}
	return resp
}

func toOrderResponses(orders []database.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}
