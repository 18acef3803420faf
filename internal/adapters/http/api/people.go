package api

import (
	"context"
	"net/http"
)

// PeopleDependencies manage the roster.
type PeopleDependencies interface {
	People(ctx context.Context) ([]string, error)
	AddPeople(ctx context.Context, names []string) ([]string, error)
	RemovePerson(ctx context.Context, name string) ([]string, error)
	ResetPeople(ctx context.Context) error
}

// PeopleHandler handles /api/doctors requests.
type PeopleHandler struct {
	deps PeopleDependencies
}

// NewPeopleHandler creates a new roster handler.
func NewPeopleHandler(deps PeopleDependencies) *PeopleHandler {
	return &PeopleHandler{deps: deps}
}

type peopleRequest struct {
	Names []string `json:"names"`
}

type peopleResponse struct {
	Doctors []string `json:"doctors"`
}

func roster(names []string) peopleResponse {
	if names == nil {
		names = []string{}
	}
	return peopleResponse{Doctors: names}
}

// HandleList handles GET /api/doctors.
func (h *PeopleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	people, err := h.deps.People(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_doctors", err)
		return
	}
	writeJSON(w, http.StatusOK, roster(people))
}

// HandleAdd handles POST /api/doctors.
func (h *PeopleHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_doctors"
	var req peopleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	people, err := h.deps.AddPeople(r.Context(), req.Names)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, roster(people))
}

// HandleReset handles POST /api/doctors/reset.
func (h *PeopleHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ResetPeople(r.Context()); err != nil {
		writeServiceError(w, "api.reset_doctors", err)
		return
	}
	writeJSON(w, http.StatusOK, roster(nil))
}

// HandleRemove handles DELETE /api/doctors/{name}. Unknown names are not
// an error.
func (h *PeopleHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	people, err := h.deps.RemovePerson(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeServiceError(w, "api.remove_doctor", err)
		return
	}
	writeJSON(w, http.StatusOK, roster(people))
}
