package pipeline

// HTTP handlers for the pipeline service.
//
// Recruiter routes expect an x-user-id header forwarded by the Gateway.
// Candidate-facing routes (apply, view, assignment, book) are public and
// keyed by the unguessable candidate ID.
//
// Routes:
//
//	GET  /jobs                                → list recruiter's jobs
//	POST /jobs                                → create job
//	GET  /jobs/{id}                           → job detail (public)
//	POST /jobs/{id}/open|close                → toggle applications
//	GET  /jobs/{id}/candidates                → list candidates
//	POST /jobs/{id}/applications              → submit application (multipart, public)
//	GET  /candidates/{id}                     → candidate detail
//	GET  /candidates/{id}/view                → candidate-facing view (public)
//	GET  /candidates/{id}/documents/{type}    → redirect to resume|assignment
//	POST /candidates/{id}/assignment          → submit assignment (public)
//	POST /candidates/{id}/approve|reject      → recruiter decision
//	POST /candidates/{id}/slots               → propose interview slots
//	POST /candidates/{id}/reconcile           → pull a booking from the calendar
//	POST /candidates/{id}/book                → book a proposed slot (public)
//	GET  /calendar/busy?start=&end=           → recruiter availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MaxUploadBytes caps a multipart request body.
const MaxUploadBytes = 10 << 20

// Handler exposes a Service over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all pipeline-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/jobs", h.handleJobs)
	mux.HandleFunc("/jobs/", h.handleJobAction)
	mux.HandleFunc("/candidates/", h.handleCandidateAction)
	mux.HandleFunc("/calendar/busy", h.listBusy)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleJobs handles GET|POST /jobs
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listJobs(w, r)
	case http.MethodPost:
		h.createJob(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobAction handles /jobs/{id}[/{action}]
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	jobID := parts[1]

	if len(parts) == 2 {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getJob(w, r, jobID)
		return
	}

	action := parts[2]
	method := http.MethodPost
	if action == "candidates" {
		method = http.MethodGet
	}
	if r.Method != method {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "open":
		h.setJobOpen(w, r, jobID, true)
	case "close":
		h.setJobOpen(w, r, jobID, false)
	case "candidates":
		h.listCandidates(w, r, jobID)
	case "applications":
		h.submitApplication(w, r, jobID)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// handleCandidateAction handles /candidates/{id}[/{action}]
func (h *Handler) handleCandidateAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 4 && parts[2] == "documents" && parts[1] != "" {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.viewDocument(w, r, parts[1], parts[3])
		return
	}
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	candidateID := parts[1]

	action := ""
	if len(parts) == 3 {
		action = parts[2]
	}
	method := http.MethodPost
	if action == "" || action == "view" {
		method = http.MethodGet
	}
	if r.Method != method {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "":
		h.getCandidate(w, r, candidateID)
	case "view":
		h.getCandidateView(w, r, candidateID)
	case "assignment":
		h.submitAssignment(w, r, candidateID)
	case "approve":
		h.approve(w, r, candidateID)
	case "reject":
		h.reject(w, r, candidateID)
	case "slots":
		h.proposeSlots(w, r, candidateID)
	case "reconcile":
		h.reconcile(w, r, candidateID)
	case "book":
		h.bookSlot(w, r, candidateID)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// ─── Jobs ─────────────────────────────────────────────────────────────────────

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	jobs, err := h.svc.ListJobs(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	jsonOK(w, jobs)
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body JobInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	job, err := h.svc.CreateJob(r.Context(), userID, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, job)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.svc.GetJob(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) setJobOpen(w http.ResponseWriter, r *http.Request, jobID string, open bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	job, err := h.svc.SetJobOpen(r.Context(), userID, jobID, open)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) listCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cands, err := h.svc.ListCandidates(r.Context(), userID, jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cands == nil {
		cands = []Candidate{}
	}
	jsonOK(w, cands)
}

func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request, jobID string) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		jsonError(w, "body must be multipart/form-data under 10 MB", http.StatusBadRequest)
		return
	}
	resume, err := readUpload(r, "resume")
	if err != nil {
		jsonError(w, "could not read resume file", http.StatusBadRequest)
		return
	}
	in := ApplicationInput{
		JobID:             jobID,
		Name:              r.FormValue("name"),
		Email:             r.FormValue("email"),
		PortfolioURL:      r.FormValue("portfolioUrl"),
		NoticePeriod:      r.FormValue("noticePeriod"),
		CurrentOrg:        r.FormValue("currentOrg"),
		YearsOfExperience: r.FormValue("yearsOfExperience"),
		Resume:            resume,
	}
	cand, err := h.svc.SubmitApplication(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// The applicant only learns the application was received.
	jsonStatus(w, http.StatusCreated, map[string]string{"id": cand.ID, "message": "Application submitted"})
}

// ─── Candidates ───────────────────────────────────────────────────────────────

func (h *Handler) getCandidate(w http.ResponseWriter, r *http.Request, candidateID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cand, err := h.svc.GetCandidate(r.Context(), userID, candidateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, cand)
}

func (h *Handler) getCandidateView(w http.ResponseWriter, r *http.Request, candidateID string) {
	view, err := h.svc.GetCandidateView(r.Context(), candidateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, view)
}

func (h *Handler) viewDocument(w http.ResponseWriter, r *http.Request, candidateID, kind string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	url, err := h.svc.DocumentURL(r.Context(), userID, candidateID, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) submitAssignment(w http.ResponseWriter, r *http.Request, candidateID string) {
	var in AssignmentInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
		if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
			jsonError(w, "body must be multipart/form-data under 10 MB", http.StatusBadRequest)
			return
		}
		file, err := readUpload(r, "file")
		if err != nil {
			jsonError(w, "could not read assignment file", http.StatusBadRequest)
			return
		}
		in = AssignmentInput{Link: r.FormValue("link"), File: file}
	} else {
		var body struct {
			Link string `json:"link"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		in.Link = body.Link
	}

	cand, err := h.svc.SubmitAssignment(r.Context(), candidateID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]string{"id": cand.ID, "status": string(cand.Status)})
}

type slotsBody struct {
	Slots []time.Time `json:"slots"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request, candidateID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body slotsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "body must contain slots as RFC 3339 timestamps", http.StatusBadRequest)
		return
	}
	cand, err := h.svc.Approve(r.Context(), userID, candidateID, body.Slots)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, cand)
}

func (h *Handler) proposeSlots(w http.ResponseWriter, r *http.Request, candidateID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body slotsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "body must contain slots as RFC 3339 timestamps", http.StatusBadRequest)
		return
	}
	cand, err := h.svc.ProposeSlots(r.Context(), userID, candidateID, body.Slots)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, cand)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, candidateID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// The reason is optional, so is the body.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	cand, err := h.svc.Reject(r.Context(), userID, candidateID, body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, cand)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, candidateID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ReconcileBooking(r.Context(), userID, candidateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) bookSlot(w http.ResponseWriter, r *http.Request, candidateID string) {
	var body struct {
		Slot time.Time `json:"slot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Slot.IsZero() {
		jsonError(w, "body must contain slot as an RFC 3339 timestamp", http.StatusBadRequest)
		return
	}
	cand, err := h.svc.BookSlot(r.Context(), candidateID, body.Slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, map[string]any{
		"id":              cand.ID,
		"interviewStatus": cand.InterviewStatus,
		"interviewDate":   cand.InterviewDate,
		"meetingLink":     cand.MeetingLink,
	})
}

// ─── Calendar ─────────────────────────────────────────────────────────────────

func (h *Handler) listBusy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, err1 := time.Parse(time.RFC3339, q.Get("start"))
	end, err2 := time.Parse(time.RFC3339, q.Get("end"))
	if err1 != nil || err2 != nil {
		jsonError(w, "start and end must be RFC 3339 timestamps", http.StatusBadRequest)
		return
	}
	busy, err := h.svc.ListBusy(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if busy == nil {
		busy = []BusyPeriod{}
	}
	jsonOK(w, busy)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// readUpload returns nil when the form has no file under field.
func readUpload(r *http.Request, field string) (*Upload, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &Upload{Filename: hdr.Filename, ContentType: partType(hdr), Data: data}, nil
}

func partType(hdr *multipart.FileHeader) string {
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		ve *ValidationError
		ie *IllegalTransitionError
		ce *CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.As(err, &ie):
		jsonError(w, ie.Error(), http.StatusConflict)
	case errors.As(err, &ce):
		slog.Warn("collaborator failure", "collaborator", ce.Collaborator, "err", ce.Err)
		jsonStatus(w, http.StatusBadGateway, map[string]any{
			"error":     fmt.Sprintf("%s is unavailable, please try again later", ce.Collaborator),
			"retryable": ce.Retryable,
		})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrJobNotFound), errors.Is(err, ErrDocumentNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrVersionConflict):
		jsonError(w, "candidate is being updated, please retry", http.StatusConflict)
	default:
		slog.Error("request failed", "err", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]string{"error": msg})
}
