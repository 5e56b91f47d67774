package api

import (
	"encoding/json"
	"net/http"

	"github.com/homeclimate/thermoms/errors"
	"github.com/homeclimate/thermoms/log"
)

func resp(w http.ResponseWriter, l log.Logger, data interface{}) {
	b, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err = w.Write(b); err != nil {
		l.Errorf("func Write: %s", err)
	}
}

func respError(w http.ResponseWriter, l log.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusInternalServerError
	body := map[string]interface{}{
		"code":    errors.ErrService,
		"message": "Internal Server Error",
	}

	switch apiErr := err.(type) {
	case errors.APIError:
		body["code"] = apiErr.Code
		body["message"] = apiErr.Message

		switch apiErr.Code {
		case errors.ErrNotFound:
			code = http.StatusNotFound
		case errors.ErrBadRequest, errors.ErrBadParam:
			code = http.StatusBadRequest
		case errors.ErrAuth, errors.ErrBadJwt:
			code = http.StatusUnauthorized
		}
	case errors.ValidationError:
		globalErr := apiErr.GlobalMessage
		if globalErr == nil {
			globalErr = []string{}
		}

		code = http.StatusBadRequest
		body["code"] = apiErr.Code
		body["message"] = apiErr.Message
		body["validation_errors"] = map[string]interface{}{"_error": globalErr, "errors": apiErr.Errors}
	default:
		l.Errorf("unclassified api error: %s", err)
	}

	b, err := json.Marshal(body)
	if err != nil {
		l.Errorf("func Marshal: %s", err)
	}

	w.WriteHeader(code)

	if _, err = w.Write(b); err != nil {
		l.Errorf("func Write: %s", err)
	}
}
