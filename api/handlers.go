/*
handlers.go - HTTP API handlers for attendance, payroll and jobs

PURPOSE:
  Exposes the attendance and payroll engines and the job scheduler via a
  REST API. Handles HTTP request/response and JSON serialization and
  delegates every decision to the engines.

ENDPOINTS:
  Per user:
    POST   /api/users/{userID}/login           Login (outcome, never an error on denial)
    POST   /api/users/{userID}/logout          Logout
    GET    /api/users/{userID}/attendance/today
    GET    /api/users/{userID}/attendance      History (?date= | ?year=&month= | ?year=)
    GET    /api/users/{userID}/attendance/all  Full history
    GET    /api/users/{userID}/attendance/counters
    GET    /api/users/{userID}/attendance/weekly
    POST   /api/users/{userID}/wallet          Create the initial wallet
    GET    /api/users/{userID}/wallet          Wallet (?year=&month= | ?year=)
    GET    /api/users/{userID}/wallet/summary
    GET    /api/users/{userID}/wallet/accruals (?year=&month=)

  Attendance (HR):
    GET    /api/attendance/daily               (?date=&search=)
    PUT    /api/attendance/status              Single override
    PUT    /api/attendance/status/bulk         Atomic bulk override
    GET    /api/attendance/payroll-days        (?year=&month=)

  Payroll:
    GET    /api/wallets                        All wallets
    GET    /api/wallets/totals                 Aggregates over open wallets
    POST   /api/wallets/deductions             Add to the open wallet's deduction
    GET    /api/payroll/overview               (?year=&month=, default current cycle)

  Jobs:
    GET    /api/jobs                           Registered jobs and next trigger
    POST   /api/jobs/{name}/run                Run now and wait
    GET    /api/jobs/runs                      (?job=&limit=)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: User, wallet or job not found
  - 409: Uniqueness conflict, job already running
  - 422: Login/logout denied by a policy (body is the outcome)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Callers are trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Job registry
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Attendance *attendance.Engine
	Payroll    *payroll.Engine
	Scheduler  *Scheduler
	log        logrus.FieldLogger
}

func NewHandler(att *attendance.Engine, pay *payroll.Engine, sched *Scheduler, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Attendance: att,
		Payroll:    pay,
		Scheduler:  sched,
		log:        logger.WithField("component", "api"),
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.Attendance.Login)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, h.Attendance.Logout)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id generic.UserID) (attendance.Outcome, error)) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	outcome, err := action(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if outcome.Result == attendance.ResultDenied {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toOutcomeDTO(outcome))
}

// =============================================================================
// ATTENDANCE QUERY HANDLERS
// =============================================================================

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec, err := h.Attendance.Today(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No attendance recorded today", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	var f attendance.HistoryFilter
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := parseDay(raw)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		f.Date = &day
	}
	if f.Year, f.Month, err = yearMonthQuery(r); err != nil {
		h.writeDomainError(w, err)
		return
	}

	recs, err := h.Attendance.History(r.Context(), userID, f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(recs))
}

func (h *Handler) GetFullHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	recs, err := h.Attendance.FullHistory(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(recs))
}

func (h *Handler) GetCounters(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	c, err := h.Attendance.Counters(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountersDTO{
		CycleStart: c.Cycle.Start.String(),
		CycleEnd:   c.Cycle.End.String(),
		Present:    c.Present,
		Absent:     c.Absent,
		HalfDays:   c.HalfDays,
		Late:       c.Late,
	})
}

func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	entries, err := h.Attendance.Weekly(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]WeeklyEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = WeeklyEntryDTO{
			Date:   e.Date.String(),
			Day:    e.Day,
			Hours:  e.Hours,
			Login:  e.Login,
			Status: string(e.Status),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	var day generic.Day
	if raw := r.URL.Query().Get("date"); raw != "" {
		var err error
		if day, err = parseDay(raw); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}
	entries, err := h.Attendance.Daily(r.Context(), day, r.URL.Query().Get("search"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]DailyEntryDTO, len(entries))
	for i := range entries {
		out[i] = DailyEntryDTO{
			AttendanceDTO: *toAttendanceDTO(&entries[i].Attendance),
			EmployeeName:  entries[i].EmployeeName,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetPayrollDays(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthQuery(r)
	if err == nil && (year == 0 || month == 0) {
		err = fmt.Errorf("%w: year and month are required", generic.ErrInvalidInput)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PayrollDaysDTO{
		Year:  year,
		Month: int(month),
		Days:  h.Attendance.PayrollDays(year, month),
	})
}

// =============================================================================
// HR OVERRIDE HANDLERS
// =============================================================================

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	update, err := toStatusUpdate(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec, err := h.Attendance.UpdateStatus(r.Context(), update)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

func (h *Handler) UpdateStatusBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	updates := make([]attendance.StatusUpdate, 0, len(req.Updates))
	for i, u := range req.Updates {
		update, err := toStatusUpdate(u)
		if err != nil {
			h.writeDomainError(w, fmt.Errorf("update %d: %w", i, err))
			return
		}
		updates = append(updates, update)
	}
	if err := h.Attendance.UpdateStatusBulk(r.Context(), updates); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(updates)})
}

func toStatusUpdate(req StatusUpdateRequest) (attendance.StatusUpdate, error) {
	day, err := parseDay(req.Date)
	if err != nil {
		return attendance.StatusUpdate{}, err
	}
	return attendance.StatusUpdate{EmpID: req.EmpID, Date: day, Status: req.Status, Remark: req.Remark}, nil
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

func (h *Handler) InitWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	wallet, err := h.Payroll.InitWallet(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(wallet))
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	year, month, err := yearMonthQuery(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	wallet, err := h.Payroll.WalletFor(r.Context(), userID, year, month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *Handler) GetWalletSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	s, err := h.Payroll.Summary(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

func (h *Handler) GetAccruals(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	year, month, err := yearMonthQuery(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	accruals, err := h.Payroll.Accruals(r.Context(), userID, year, month)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]AccrualDTO, len(accruals))
	for i, a := range accruals {
		out[i] = AccrualDTO{
			Date:     a.Date.String(),
			Status:   string(a.Status),
			Amount:   a.Amount.StringFixed(2),
			WalletID: a.WalletID,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Payroll.Wallets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]WalletDTO, len(wallets))
	for i := range wallets {
		out[i] = toWalletDTO(&wallets[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	t, err := h.Payroll.Totals(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalsDTO{
		MonthlySalary: t.MonthlySalary.StringFixed(2),
		NetPayable:    t.NetPayable.StringFixed(2),
		Deduction:     t.Deduction.StringFixed(2),
	})
}

func (h *Handler) AddDeduction(w http.ResponseWriter, r *http.Request) {
	var req DeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmpID == "" {
		writeError(w, http.StatusBadRequest, "emp_id is required", nil)
		return
	}
	wallet, err := h.Payroll.AddDeduction(r.Context(), req.EmpID, req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *Handler) GetSalaryOverview(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthQuery(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var lines []payroll.SalaryLine
	switch {
	case year == 0 && month == 0:
		lines, err = h.Payroll.CurrentOverview(r.Context())
	case year == 0 || month == 0:
		err = fmt.Errorf("%w: year and month go together", generic.ErrInvalidInput)
	default:
		lines, err = h.Payroll.SalaryOverview(r.Context(), year, month)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]SalaryLineDTO, len(lines))
	for i, l := range lines {
		out[i] = toSalaryLineDTO(l)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Scheduler.Jobs()
	out := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		out[i] = JobDTO{Name: j.Name, Spec: j.Spec}
		if !j.Next.IsZero() {
			out[i].NextRun = j.Next.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// RunJob runs a job synchronously. A run that finishes with per-user
// failures is still a 200; the run record carries the error.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	run, err := h.Scheduler.RunNow(r.Context(), chi.URLParam(r, "name"))
	if err != nil && run.ID == "" {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobRunDTO(run))
}

func (h *Handler) ListJobRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Scheduler.Runs(r.Context(), r.URL.Query().Get("job"), limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]JobRunDTO, len(runs))
	for i, run := range runs {
		out[i] = toJobRunDTO(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorDTO{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 and is logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		h.log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func userIDParam(r *http.Request) (generic.UserID, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: user id %q", generic.ErrInvalidInput, raw)
	}
	return generic.UserID(id), nil
}

func parseDay(raw string) (generic.Day, error) {
	day, err := generic.ParseDay(raw)
	if err != nil {
		return generic.Day{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", generic.ErrInvalidInput, raw)
	}
	return day, nil
}

// yearMonthQuery reads the optional year and month query parameters. Zero
// means absent.
func yearMonthQuery(r *http.Request) (int, time.Month, error) {
	var year, month int
	var err error
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil || year < 1 {
			return 0, 0, fmt.Errorf("%w: year %q", generic.ErrInvalidInput, raw)
		}
	}
	if raw := q.Get("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("%w: month %q", generic.ErrInvalidInput, raw)
		}
	}
	if month > 0 && year == 0 {
		return 0, 0, fmt.Errorf("%w: month needs a year", generic.ErrInvalidInput)
	}
	return year, time.Month(month), nil
}
