package routes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/usecase"
)

// httpStatus maps the entity sentinels onto response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func RegisterRestAPI(injector *do.Injector, e *echo.Echo) {
	g := e.Group("/api")

	g.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	registerRepositories(injector, g)
	registerCommits(injector, g)
	registerRuns(injector, g)
	registerEnvironments(injector, g)
	registerDeployments(injector, g)
}

func registerRepositories(injector *do.Injector, g *echo.Group) {
	g.POST("/repositories", func(c echo.Context) error {
		type request struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		uc := do.MustInvoke[usecase.CreateRepositoryUsecase](injector)
		repo, err := uc.Execute(c.Request().Context(), &entity.Repository{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusCreated, repo)
	})

	g.GET("/repositories", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.ListRepositoryUsecase](injector)
		repos, err := uc.Execute(c.Request().Context())
		if err != nil {
			return c.NoContent(httpStatus(err))
		}

		type response struct {
			Repositories []*entity.Repository `json:"repositories"`
		}
		return c.JSON(http.StatusOK, &response{Repositories: repos})
	})

	g.POST("/check-name", func(c echo.Context) error {
		type request struct {
			Name string `json:"name"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		uc := do.MustInvoke[usecase.CheckRepositoryNameUsecase](injector)
		available, err := uc.Execute(c.Request().Context(), req.Name)
		if err != nil {
			return c.NoContent(httpStatus(err))
		}

		type response struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		}
		return c.JSON(http.StatusOK, &response{Name: req.Name, Available: available})
	})
}

func registerCommits(injector *do.Injector, g *echo.Group) {
	g.POST("/repos/:reponame/commits/:sha/ingest", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.IngestCommitUsecase](injector)
		commit, err := uc.Execute(c.Request().Context(), c.Param("reponame"), c.Param("sha"))
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusOK, commit)
	})

	g.POST("/repos/:reponame/commits/:sha/artifacts", func(c echo.Context) error {
		if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
			return c.NoContent(http.StatusBadRequest)
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		file, err := fileHeader.Open()
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		defer file.Close()

		uc := do.MustInvoke[usecase.UploadArtifactUsecase](injector)
		artifact, err := uc.Execute(c.Request().Context(), usecase.UploadArtifactInput{
			RepoName:  c.Param("reponame"),
			CommitSHA: c.Param("sha"),
			Name:      fileHeader.Filename,
			Kind:      entity.ArtifactKind(c.FormValue("kind")),
			Body:      file,
		})
		if err != nil {
			return c.NoContent(httpStatus(err))
		}

		type response struct {
			Status   string                 `json:"status"`
			Artifact *entity.CommitArtifact `json:"artifact"`
		}
		return c.JSON(http.StatusOK, &response{Status: "ok", Artifact: artifact})
	})
}

func registerRuns(injector *do.Injector, g *echo.Group) {
	g.POST("/repositories/:reponame/runs", func(c echo.Context) error {
		type jobRequest struct {
			Name        string `json:"name"`
			Environment string `json:"environment"`
		}
		type request struct {
			WorkflowID string       `json:"workflow_id"`
			CommitSHA  string       `json:"commit_sha"`
			Branch     string       `json:"branch"`
			Event      string       `json:"event"`
			Jobs       []jobRequest `json:"jobs"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		in := usecase.CreateWorkflowRunInput{
			RepoName:   c.Param("reponame"),
			WorkflowID: req.WorkflowID,
			CommitSHA:  req.CommitSHA,
			Branch:     req.Branch,
			Event:      req.Event,
		}
		for _, j := range req.Jobs {
			in.Jobs = append(in.Jobs, usecase.RunJobInput{Name: j.Name, Environment: j.Environment})
		}

		uc := do.MustInvoke[usecase.CreateWorkflowRunUsecase](injector)
		run, err := uc.Execute(c.Request().Context(), in)
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusCreated, run)
	})

	g.GET("/runs/:id", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.GetWorkflowRunUsecase](injector)
		detail, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")))
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusOK, detail)
	})

	g.POST("/runs/:id/cancel", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.CancelWorkflowRunUsecase](injector)
		run, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")))
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusOK, run)
	})

	g.POST("/runs/:id/jobs/:jobID/complete", func(c echo.Context) error {
		type request struct {
			Conclusion string `json:"conclusion"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		uc := do.MustInvoke[usecase.CompleteJobUsecase](injector)
		job, err := uc.Execute(c.Request().Context(), usecase.CompleteJobInput{
			RunID:      entity.ID(c.Param("id")),
			JobID:      entity.ID(c.Param("jobID")),
			Conclusion: entity.JobConclusion(req.Conclusion),
		})
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusOK, job)
	})

	g.GET("/runs/:id/jobs/:jobID/logs", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.GetJobLogsUsecase](injector)
		logs, err := uc.Execute(c.Request().Context(), entity.ID(c.Param("id")), entity.ID(c.Param("jobID")))
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		defer logs.Close()

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
		res.WriteHeader(http.StatusOK)
		_, err = io.Copy(res.Writer, logs)
		return err
	})
}

func registerEnvironments(injector *do.Injector, g *echo.Group) {
	g.GET("/repositories/:reponame/environments", func(c echo.Context) error {
		uc := do.MustInvoke[usecase.ListEnvironmentsUsecase](injector)
		details, err := uc.Execute(c.Request().Context(), c.Param("reponame"))
		if err != nil {
			return c.NoContent(httpStatus(err))
		}

		type response struct {
			Environments []*usecase.EnvironmentDetail `json:"environments"`
		}
		return c.JSON(http.StatusOK, &response{Environments: details})
	})
}

func registerDeployments(injector *do.Injector, g *echo.Group) {
	g.POST("/deployments/:id/approve", func(c echo.Context) error {
		type request struct {
			State   string `json:"state"`
			Comment string `json:"comment"`
			UserID  string `json:"user_id"`
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		uc := do.MustInvoke[usecase.SubmitApprovalUsecase](injector)
		dep, err := uc.Execute(c.Request().Context(), usecase.SubmitApprovalInput{
			DeploymentID: entity.ID(c.Param("id")),
			UserID:       entity.ID(req.UserID),
			State:        entity.ApprovalState(req.State),
			Comment:      req.Comment,
		})
		if err != nil {
			return c.NoContent(httpStatus(err))
		}

		type response struct {
			Message string `json:"message"`
		}
		return c.JSON(http.StatusOK, &response{
			Message: "deployment " + string(dep.Status),
		})
	})
}
