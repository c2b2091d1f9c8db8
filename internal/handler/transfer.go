package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/export"
	"eventcheckin/internal/importer"
)

const maxImportBytes = 10 << 20

// Import reads the "file" field of a multipart upload as participant CSV.
func (h *Handler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	rows, err := importer.ReadCSV(f)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rep, err := h.importer.Reconcile(c.Request.Context(), currentEvent(c).ID, rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Export streams participants as CSV. Query flags checked_in, lunch and kit
// combine with AND; all=true ignores them.
func (h *Handler) Export(c *gin.Context) {
	evt := currentEvent(c)
	filter := export.Filter{
		All:       queryBool(c, "all"),
		CheckedIn: queryBool(c, "checked_in"),
		Lunch:     queryBool(c, "lunch"),
		Kit:       queryBool(c, "kit"),
	}
	ps, err := h.svc.ListParticipants(c.Request.Context(), evt.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	ps = filter.Apply(ps)
	if len(ps) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": attendance.ReasonNotFound, "message": "no participants found matching the criteria"})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, ps, h.loc); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(evt, h.svc.Today())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
