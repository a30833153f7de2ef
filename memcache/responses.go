package memcache

import (
	"github.com/lericson/pylibmc/errors"
)

// Returns the error describing a non-success status, or nil for
// StatusNoError.
func NewStatusCodeError(status ResponseStatus) error {
	if status == StatusNoError {
		return nil
	}
	if info, ok := statusInfos[status]; ok {
		return errors.New(info.message)
	}
	return errors.Newf("Invalid status: %d", int(status))
}

// Shared by every response kind.  A client-side error takes precedence
// over the status.
type response struct {
	err    error
	status ResponseStatus
}

func (r *response) Status() ResponseStatus {
	return r.status
}

func (r *response) Error() error {
	if r.err != nil {
		return r.err
	}
	return NewStatusCodeError(r.status)
}

type getResponse struct {
	response
	item Item
}

// A miss is a normal outcome of a get, not an error.
func (r *getResponse) Error() error {
	if r.err == nil && r.status == StatusKeyNotFound {
		return nil
	}
	return r.response.Error()
}

func (r *getResponse) Key() string           { return r.item.Key }
func (r *getResponse) Value() []byte         { return r.item.Value }
func (r *getResponse) Flags() uint32         { return r.item.Flags }
func (r *getResponse) DataVersionId() uint64 { return r.item.DataVersionId }

type mutateResponse struct {
	response
	key     string
	version uint64
}

func (r *mutateResponse) Key() string           { return r.key }
func (r *mutateResponse) DataVersionId() uint64 { return r.version }

type countResponse struct {
	response
	key   string
	count uint64
}

func (r *countResponse) Key() string   { return r.key }
func (r *countResponse) Count() uint64 { return r.count }

func NewErrorResponse(err error) Response {
	return &response{err: err}
}

func NewResponse(status ResponseStatus) Response {
	return &response{status: status}
}

func NewGetErrorResponse(key string, err error) GetResponse {
	return &getResponse{
		response: response{err: err},
		item:     Item{Key: key},
	}
}

// The value, flags and version are dropped unless status is
// StatusNoError.  A found entry never has a nil value.
func NewGetResponse(
	key string,
	status ResponseStatus,
	flags uint32,
	value []byte,
	version uint64) GetResponse {

	resp := &getResponse{
		response: response{status: status},
		item:     Item{Key: key},
	}
	if status != StatusNoError {
		return resp
	}

	if value == nil {
		value = []byte{}
	}
	resp.item.Value = value
	resp.item.Flags = flags
	resp.item.DataVersionId = version
	return resp
}

func NewMutateErrorResponse(key string, err error) MutateResponse {
	return &mutateResponse{response: response{err: err}, key: key}
}

func NewMutateResponse(
	key string,
	status ResponseStatus,
	version uint64) MutateResponse {

	resp := &mutateResponse{response: response{status: status}, key: key}
	if status == StatusNoError {
		resp.version = version
	}
	return resp
}

func NewCountErrorResponse(key string, err error) CountResponse {
	return &countResponse{response: response{err: err}, key: key}
}

func NewCountResponse(
	key string,
	status ResponseStatus,
	count uint64) CountResponse {

	resp := &countResponse{response: response{status: status}, key: key}
	if status == StatusNoError {
		resp.count = count
	}
	return resp
}
