package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// ListTrips handles GET /trips.
// Supports ?status=all|ongoing|upcoming|completed; omitted means all.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	raw, err := queryString(r, "status")
	if err != nil {
		badRequest(w, "invalid status parameter")
		return
	}
	status, ok := domain.ParseTripStatus(raw)
	if !ok {
		badRequest(w, fmt.Sprintf("unknown status %q", raw))
		return
	}

	trips, err := s.trips.FilterByStatus(r.Context(), status)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			badRequest(w, unwrapMessage(err))
			return
		}
		s.internalError(w, r, "failed to fetch trips", err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// SearchTrips handles GET /trips/search?keyword=.
func (s *Server) SearchTrips(w http.ResponseWriter, r *http.Request) {
	keyword, err := queryString(r, "keyword")
	if err != nil {
		badRequest(w, "invalid keyword parameter")
		return
	}

	trips, err := s.trips.Search(r.Context(), keyword)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			badRequest(w, unwrapMessage(err))
			return
		}
		s.internalError(w, r, "failed to search trips", err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			notFound(w, "trip not found")
		case errors.Is(err, domain.ErrValidation):
			badRequest(w, unwrapMessage(err))
		default:
			s.internalError(w, r, "failed to fetch trip", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var in domain.NewTrip
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	id, err := s.trips.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			unprocessable(w, err)
			return
		}
		s.internalError(w, r, "failed to create trip", err)
		return
	}
	writeJSON(w, http.StatusOK, CreatedResponse{ID: id})
}

// UpdateTrip handles PUT /trips/{id}.
// Only the fields present in the body are changed.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	patch, err := decodePatch(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.trips.Update(r.Context(), id, patch); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			notFound(w, "trip not found")
		case errors.Is(err, domain.ErrValidation):
			unprocessable(w, err)
		default:
			s.internalError(w, r, "failed to update trip", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DeleteTrip handles DELETE /trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.trips.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			notFound(w, "trip not found")
		case errors.Is(err, domain.ErrValidation):
			badRequest(w, unwrapMessage(err))
		default:
			s.internalError(w, r, "failed to delete trip", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// --- mapping helpers --------------------------------------------------------

// pathID binds the {id} path segment. On failure it writes a 400 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id == "" {
		badRequest(w, "trip id is required")
		return "", false
	}
	return id, true
}

// queryString binds an optional form-style query parameter. An absent
// parameter yields "".
func queryString(r *http.Request, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// decodePatch reads a partial update body. A field that is absent stays nil
// in the patch. An explicit null clears cover, empties days, and is passed
// through as "" for the other fields so validation rejects it.
func decodePatch(r *http.Request) (domain.TripPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return domain.TripPatch{}, errors.New("invalid request body")
	}

	var patch domain.TripPatch
	var err error
	if patch.Title, err = stringField(fields, "title"); err != nil {
		return domain.TripPatch{}, err
	}
	if patch.Cover, err = stringField(fields, "cover"); err != nil {
		return domain.TripPatch{}, err
	}
	if patch.StartAt, err = stringField(fields, "startAt"); err != nil {
		return domain.TripPatch{}, err
	}
	if patch.EndAt, err = stringField(fields, "endAt"); err != nil {
		return domain.TripPatch{}, err
	}
	if raw, ok := fields["days"]; ok {
		days := []domain.Day{}
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &days); err != nil {
				return domain.TripPatch{}, errors.New("days must be an array of days")
			}
		}
		patch.Days = &days
	}
	return patch, nil
}

// stringField returns nil when name is absent, a pointer to "" when it is
// null, and the decoded string otherwise.
func stringField(fields map[string]json.RawMessage, name string) (*string, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	var v string
	if isNull(raw) {
		return &v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s must be a string", name)
	}
	return &v, nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
