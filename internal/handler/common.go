package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/pkg/apperror"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fail maps a service error onto the response envelope using the
// typed-error taxonomy. Unknown errors become a 500 with a generic
// message so internals never leak.
func fail(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}

	if fields := apperror.FieldsOf(err); len(fields) > 0 {
		c.JSON(status, response.ErrorWithFields(status, msg, fields))
		return
	}
	c.JSON(status, response.Error(status, msg))
}

// actorID returns the caller's user id, nil when unauthenticated.
func actorID(c *gin.Context) *uuid.UUID {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return nil
	}
	id := actor.UserID
	return &id
}

// tenantScope aborts with 400 when the request has no resolvable
// distributor; superusers must pass X-Distributor-ID on tenant routes.
func tenantScope(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.DistributorIDFrom(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "no distributor scope: user has no distributor and no X-Distributor-ID header set"))
		return uuid.Nil, false
	}
	return id, true
}
