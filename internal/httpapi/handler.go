package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"google.golang.org/protobuf/types/known/emptypb"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// binder fills the parts of a request that come from the URL.
type binder[Req any] func(r *http.Request, req *Req) error

// endpoint adapts a service method to an http.HandlerFunc. The JSON body,
// when present, is decoded first, then each binder runs in order.
func endpoint[Req, Resp any](status int, fn func(context.Context, *Req) (*Resp, error), binds ...binder[Req]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := new(Req)
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
				writeJSON(w, http.StatusBadRequest, NewErrorResponse("Invalid request body"))
				return
			}
		}
		for _, bind := range binds {
			if err := bind(r, req); err != nil {
				writeError(w, err)
				return
			}
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		var data any = resp
		if _, empty := any(resp).(*emptypb.Empty); empty {
			data = nil
		}
		writeJSON(w, status, NewSuccessResponse(data))
	}
}

// param binds a chi URL parameter into a request field.
func param[Req any](name string, field func(*Req) *string) binder[Req] {
	return func(r *http.Request, req *Req) error {
		*field(req) = chi.URLParam(r, name)
		return nil
	}
}

// query binds an optional query string value.
func query[Req any](name string, field func(*Req) *string) binder[Req] {
	return func(r *http.Request, req *Req) error {
		if v := r.URL.Query().Get(name); v != "" {
			*field(req) = v
		}
		return nil
	}
}

// queryInt binds an optional integer query value.
func queryInt[Req any](name string, field func(*Req) *int) binder[Req] {
	return func(r *http.Request, req *Req) error {
		v := r.URL.Query().Get(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return svcErr.InvalidArgument(name + " must be an integer")
		}
		*field(req) = n
		return nil
	}
}

// confirm binds ?confirm=true for DELETE requests sent without a body.
func confirm[Req any](field func(*Req) *bool) binder[Req] {
	return func(r *http.Request, req *Req) error {
		v := r.URL.Query().Get("confirm")
		if v == "" {
			return nil
		}
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return svcErr.InvalidArgument("confirm must be a boolean")
		}
		*field(req) = ok
		return nil
	}
}
