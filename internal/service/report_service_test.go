package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-risk-api/internal/dto"
	"github.com/noah-isme/sma-risk-api/internal/models"
	"github.com/noah-isme/sma-risk-api/internal/repository"
	appErrors "github.com/noah-isme/sma-risk-api/pkg/errors"
	"github.com/noah-isme/sma-risk-api/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, upd repository.ReportJobUpdate) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.ResultURL != nil {
		job.ResultURL = upd.ResultURL
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = upd.ErrorMessage
	}
	if upd.FinishedAt != nil {
		job.FinishedAt = upd.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued || job.Status == models.ReportStatusProcessing {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var finished []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc := newExportServiceForTest(t, groupAnalyzerStub{resp: sampleGroupRisk()})
	svc := NewReportService(repo, queue, exportSvc, nil, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return svc, repo, queue, exportSvc
}

func validReportRequest() dto.ReportRequest {
	return dto.ReportRequest{
		Type:      models.ReportTypeGroupRisk,
		GroupID:   "g-1",
		PartialID: "p1",
		Format:    models.ReportFormatCSV,
	}
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), validReportRequest(), "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "group_risk", queue.jobs[0].Type)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Contains(t, repo.jobs, resp.ID)
	assert.Equal(t, "g-1", repo.jobs[resp.ID].Params.GroupID)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)

	req := validReportRequest()
	req.PartialID = "p9"
	_, err := svc.CreateJob(context.Background(), req, "admin-1")
	requireAppStatus(t, err, http.StatusBadRequest)

	req = validReportRequest()
	req.Format = "xlsx"
	_, err = svc.CreateJob(context.Background(), req, "admin-1")
	requireAppStatus(t, err, http.StatusBadRequest)
	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = errors.New("queue stopped")

	_, err := svc.CreateJob(context.Background(), validReportRequest(), "admin-1")
	requireAppStatus(t, err, http.StatusInternalServerError)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	msg := ""
	repo.jobs["job-1"] = &models.ReportJob{
		ID:           "job-1",
		Type:         models.ReportTypeGroupRisk,
		Status:       models.ReportStatusFinished,
		Progress:     100,
		CreatedBy:    "teacher-1",
		ErrorMessage: &msg,
	}

	resp, err := svc.GetStatus(context.Background(), "job-1", "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, resp.Status)
	assert.Nil(t, resp.Error)

	_, err = svc.GetStatus(context.Background(), "job-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "job-1", "teacher-2", models.RoleTeacher)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.GetStatus(context.Background(), "job-x", "admin-1", models.RoleAdmin)
	requireAppStatus(t, err, http.StatusNotFound)
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-download",
		Type:   models.ReportTypeGroupRisk,
		Params: models.ReportJobParams{GroupID: "g-1", PartialID: "p1", Format: models.ReportFormatCSV},
		Status: models.ReportStatusProcessing,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrReportNotReady)

	job.Status = models.ReportStatusFinished
	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, result.RelativePath, download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)

	_, err = svc.ResolveDownload(context.Background(), result.Token+"00")
	requireAppStatus(t, err, http.StatusForbidden)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	repo.jobs["a"] = &models.ReportJob{ID: "a", Type: models.ReportTypeGroupRisk, Status: models.ReportStatusQueued}
	repo.jobs["b"] = &models.ReportJob{ID: "b", Type: models.ReportTypeReferrals, Status: models.ReportStatusProcessing}
	repo.jobs["c"] = &models.ReportJob{ID: "c", Type: models.ReportTypeReferrals, Status: models.ReportStatusFinished}

	assert.Equal(t, 2, svc.RecoverPendingJobs(context.Background()))
	assert.Len(t, queue.jobs, 2)
}

func TestReportServiceCleanupExpired(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-old",
		Type:   models.ReportTypeGroupRisk,
		Params: models.ReportJobParams{GroupID: "g-1", PartialID: "p1", Format: models.ReportFormatCSV},
		Status: models.ReportStatusFinished,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	finished := time.Now().Add(-2 * time.Hour)
	job.ResultURL = &result.URL
	job.FinishedAt = &finished

	svc.cleanupExpired(context.Background())
	_, err = exportSvc.Open(result.RelativePath)
	assert.Error(t, err)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func newQueuedJobRepo() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{
		"job-1": {
			ID:     "job-1",
			Type:   models.ReportTypeGroupRisk,
			Params: models.ReportJobParams{GroupID: "g-1", PartialID: "p1", Format: models.ReportFormatCSV},
			Status: models.ReportStatusQueued,
		},
	}}
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := newQueuedJobRepo()
	metrics := NewMetricsService()
	worker := NewReportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}, metrics, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "group_risk"}))
	job := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/token", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportWorkerFailureRequeuesThenDropMarksFailed(t *testing.T) {
	repo := newQueuedJobRepo()
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, nil, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "group_risk"})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	assert.Equal(t, "boom", *repo.jobs["job-1"].ErrorMessage)

	worker.MarkFailed(context.Background(), jobs.Job{ID: "job-1", Type: "group_risk", Attempt: 4}, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
}
