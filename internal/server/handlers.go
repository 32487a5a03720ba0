package server

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/HeartRisk/internal/advice"
	"github.com/FlavioCFOliveira/HeartRisk/internal/assess"
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 16

// formValues echoes the submitted form back into the page.
type formValues struct {
	Age, Height, Weight, Systolic, Diastolic, Cholesterol, Glucose string
	Gender, Smoking, Alcohol, Activity                             string
}

func defaultForm() formValues {
	return formValues{
		Age: "30", Height: "170", Weight: "70", Systolic: "120", Diastolic: "80",
		Cholesterol: "190", Glucose: "95",
		Gender: "Male", Smoking: "No", Alcohol: "No", Activity: "Yes",
	}
}

type resultView struct {
	*assess.Assessment
	GlobalImage template.URL
	LocalImage  template.URL
}

type pageData struct {
	Form      formValues
	LiveFlags []string
	Error     string
	Result    *resultView
}

func pngDataURL(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.LiveFlags = data.Form.liveFlags()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.WithField("request_id", requestID(r.Context())).WithError(err).Error("render page")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{Form: defaultForm()})
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, pageData{Form: defaultForm(), Error: "Could not read the form."})
		return
	}

	form := formValues{
		Age:         r.PostFormValue("age"),
		Height:      r.PostFormValue("height"),
		Weight:      r.PostFormValue("weight"),
		Systolic:    r.PostFormValue("systolic"),
		Diastolic:   r.PostFormValue("diastolic"),
		Cholesterol: r.PostFormValue("cholesterol"),
		Glucose:     r.PostFormValue("glucose"),
		Gender:      r.PostFormValue("gender"),
		Smoking:     r.PostFormValue("smoking"),
		Alcohol:     r.PostFormValue("alcohol"),
		Activity:    r.PostFormValue("activity"),
	}

	in, err := form.input()
	if err != nil {
		s.render(w, r, http.StatusOK, pageData{Form: form, Error: err.Error()})
		return
	}

	res, err := s.assessor.Assess(r.Context(), in)
	if err != nil {
		var vErr *assess.ValidationError
		if errors.As(err, &vErr) {
			s.render(w, r, http.StatusOK, pageData{Form: form, Error: "Invalid input: " + vErr.Error()})
			return
		}
		s.logger.WithField("request_id", requestID(r.Context())).WithError(err).Error("assessment failed")
		s.render(w, r, http.StatusInternalServerError, pageData{Form: form, Error: "The assessment could not be completed."})
		return
	}
	s.metrics.observeAssessment(res.Risk)

	s.render(w, r, http.StatusOK, pageData{
		Form: form,
		Result: &resultView{
			Assessment:  res,
			GlobalImage: pngDataURL(res.GlobalPNG),
			LocalImage:  pngDataURL(res.LocalPNG),
		},
	})
}

// input parses the submitted strings. Blank numbers are rejected.
func (f formValues) input() (assess.Input, error) {
	var in assess.Input
	numbers := []struct {
		name string
		raw  string
		dest *float64
	}{
		{"age", f.Age, &in.Age},
		{"height", f.Height, &in.Height},
		{"weight", f.Weight, &in.Weight},
		{"systolic", f.Systolic, &in.Systolic},
		{"diastolic", f.Diastolic, &in.Diastolic},
		{"cholesterol", f.Cholesterol, &in.Cholesterol},
		{"glucose", f.Glucose, &in.Glucose},
	}
	for _, n := range numbers {
		v, err := strconv.ParseFloat(strings.TrimSpace(n.raw), 64)
		if err != nil {
			return assess.Input{}, &assess.ValidationError{Field: n.name, Reason: "must be a number"}
		}
		*n.dest = v
	}

	var err error
	if in.Male, err = choice("gender", f.Gender, "Male", "Female"); err != nil {
		return assess.Input{}, err
	}
	if in.Smoker, err = choice("smoking", f.Smoking, "Yes", "No"); err != nil {
		return assess.Input{}, err
	}
	if in.Alcohol, err = choice("alcohol", f.Alcohol, "Yes", "No"); err != nil {
		return assess.Input{}, err
	}
	if in.Active, err = choice("activity", f.Activity, "Yes", "No"); err != nil {
		return assess.Input{}, err
	}
	return in, nil
}

// liveFlags evaluates the live feedback rules on the watched fields.
// It returns nil while any of them is not a number or height is not positive.
func (f formValues) liveFlags() []string {
	raw := []string{f.Age, f.Height, f.Weight, f.Systolic, f.Cholesterol, f.Glucose}
	v := make([]float64, len(raw))
	for i, r := range raw {
		x, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil
		}
		v[i] = x
	}
	if v[1] <= 0 {
		return nil
	}
	return advice.LiveFlags(v[0], v[1], v[2], v[3], v[4], v[5])
}

func choice(field, value, yes, no string) (bool, error) {
	switch value {
	case yes:
		return true, nil
	case no:
		return false, nil
	}
	return false, &assess.ValidationError{Field: field, Reason: "must be " + yes + " or " + no}
}

type localWeight struct {
	Feature string  `json:"feature"`
	Label   string  `json:"label"`
	Weight  float64 `json:"weight"`
}

type predictResponse struct {
	RequestID       string        `json:"request_id"`
	BMI             float64       `json:"bmi"`
	Probability     float64       `json:"probability"`
	Risk            string        `json:"risk"`
	ConfidenceLow   float64       `json:"confidence_low"`
	ConfidenceHigh  float64       `json:"confidence_high"`
	Warnings        []string      `json:"warnings"`
	Recommendations []string      `json:"recommendations"`
	Local           []localWeight `json:"local"`
	GlobalPNG       []byte        `json:"global_png"`
	LocalPNG        []byte        `json:"local_png"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("write response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	s.respondJSON(w, code, errorResponse{RequestID: requestID(r.Context()), Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func (s *Server) handlePredictJSON(w http.ResponseWriter, r *http.Request) {
	var in assess.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.assessor.Assess(r.Context(), in)
	if err != nil {
		var vErr *assess.ValidationError
		if errors.As(err, &vErr) {
			s.respondError(w, r, http.StatusBadRequest, vErr.Error())
			return
		}
		s.logger.WithField("request_id", requestID(r.Context())).WithError(err).Error("assessment failed")
		s.respondError(w, r, http.StatusInternalServerError, "assessment failed")
		return
	}
	s.metrics.observeAssessment(res.Risk)

	local := make([]localWeight, len(res.Local))
	for i, fw := range res.Local {
		local[i] = localWeight{Feature: features.Names[fw.Feature], Label: fw.Label, Weight: fw.Weight}
	}
	s.respondJSON(w, http.StatusOK, predictResponse{
		RequestID:       requestID(r.Context()),
		BMI:             res.BMI,
		Probability:     res.Probability,
		Risk:            res.Risk,
		ConfidenceLow:   res.ConfidenceLow,
		ConfidenceHigh:  res.ConfidenceHigh,
		Warnings:        res.Warnings,
		Recommendations: res.Recommendations,
		Local:           local,
		GlobalPNG:       res.GlobalPNG,
		LocalPNG:        res.LocalPNG,
	})
}

// flagsRequest holds the fields watched by the live feedback.
type flagsRequest struct {
	Age         float64 `json:"age"`
	Height      float64 `json:"height"`
	Weight      float64 `json:"weight"`
	Systolic    float64 `json:"systolic"`
	Cholesterol float64 `json:"cholesterol"`
	Glucose     float64 `json:"glucose"`
}

type flagsResponse struct {
	Flags []string `json:"flags"`
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	var req flagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Height <= 0 {
		s.respondError(w, r, http.StatusBadRequest, "invalid height: must be greater than zero")
		return
	}
	s.respondJSON(w, http.StatusOK, flagsResponse{
		Flags: advice.LiveFlags(req.Age, req.Height, req.Weight, req.Systolic, req.Cholesterol, req.Glucose),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
