package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/services/packages"
	"github.com/BearBump/CargoBox/internal/spreadsheet"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func lang(r *http.Request) string {
	return r.Header.Get("Accept-Language")
}

func (a *API) listOwnPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := a.svc.Packages.ListOwn(r.Context(), principal(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.toPackages(pkgs, lang(r)))
}

func (a *API) addOwnPackage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TrackNumber string `json:"track_number"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	pkg, err := a.svc.Packages.AddOwn(r.Context(), principal(r), in.TrackNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.toPackage(pkg, lang(r)))
}

func (a *API) listInTransit(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Packages.ListInTransit(r.Context(), principal(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.toBoard(items, lang(r)))
}

func (a *API) setPackageStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Status models.PackageStatus `json:"status"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	pkg, err := a.svc.Packages.SetStatus(r.Context(), principal(r), id, in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.toPackage(pkg, lang(r)))
}

// importPackages takes multipart "file" plus the column mapping as form fields.
func (a *API) importPackages(w http.ResponseWriter, r *http.Request) {
	t, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	req := packages.ImportRequest{Rows: t.Rows}
	var err error
	if req.TrackColumn, err = formInt(r, "track_column", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if req.WeightColumn, err = formInt(r, "weight_column", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DateColumn, err = formInt(r, "date_column", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if v := strings.TrimSpace(r.FormValue("arrival_date")); v != "" {
		d, ok := spreadsheet.ParseDate(v)
		if !ok {
			writeError(w, r, apperr.Validation("arrival_date is not a date"))
			return
		}
		req.ArrivalDate = &d
	}
	if v := strings.TrimSpace(r.FormValue("price_per_kg")); v != "" {
		f, ok := spreadsheet.ParseNumber(v)
		if !ok {
			writeError(w, r, apperr.Validation("price_per_kg is not a number"))
			return
		}
		req.PricePerKg = &f
	}

	res, err := a.svc.Packages.Import(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) readUpload(w http.ResponseWriter, r *http.Request) (*spreadsheet.Table, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "multipart form with a file is expected"))
		return nil, false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "file is required"))
		return nil, false
	}
	defer f.Close()

	t, err := spreadsheet.Read(hdr.Filename, f)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "cannot read the file: "+err.Error()))
		return nil, false
	}
	return t, true
}

func formInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(name + " must be a number")
	}
	return n, nil
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, apperr.Validation(name+" must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}
