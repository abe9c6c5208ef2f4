package ui

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"datapulse/adapters/ingest"
	"datapulse/app"
	"datapulse/domain/core"
	"datapulse/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
)

// DatasetHandler serves dataset upload, listing, analysis and deletion.
type DatasetHandler struct {
	analysisService *app.AnalysisService
	maxUploadBytes  int64
}

// NewDatasetHandler creates a dataset handler.
func NewDatasetHandler(analysisService *app.AnalysisService, maxUploadBytes int64) *DatasetHandler {
	return &DatasetHandler{
		analysisService: analysisService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// HandleUpload accepts a multipart file, runs the analysis pipeline and
// stores the results.
func (h *DatasetHandler) HandleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
			return
		}

		if !ingest.SupportedExtension(fileHeader.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only CSV, JSON and XLSX files are supported"})
			return
		}
		if fileHeader.Size > h.maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file size exceeds %dMB limit", h.maxUploadBytes/(1024*1024)),
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
			return
		}
		if int64(len(data)) > h.maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file size exceeds %dMB limit", h.maxUploadBytes/(1024*1024)),
			})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		result, err := h.analysisService.ProcessUpload(
			c.Request.Context(), currentUserID(c), fileHeader.Filename, contentType, data)
		if err != nil {
			log.Printf("[API] upload processing failed: %v", err)
			status := http.StatusInternalServerError
			if errors.IsMalformedTable(err) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": fmt.Sprintf("failed to process file: %v", err)})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "File processed successfully",
			"dataset_id":      result.Dataset.ID,
			"processing_time": result.Dataset.ProcessingTime,
			"rows":            result.Dataset.RowCount,
			"columns":         result.Dataset.ColumnCount,
		})
	}
}

// HandleList returns the user's datasets.
func (h *DatasetHandler) HandleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		limitStr := c.DefaultQuery("limit", "100")
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 100 {
			limit = 100
		}

		datasets, err := h.analysisService.ListDatasets(c.Request.Context(), currentUserID(c), limit)
		if err != nil {
			log.Printf("[API] failed to list datasets: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve datasets"})
			return
		}

		c.JSON(http.StatusOK, datasets)
	}
}

// HandleGetAnalysis returns the dataset record plus its full analysis report.
func (h *DatasetHandler) HandleGetAnalysis() gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID, err := core.ParseDatasetID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
			return
		}

		result, err := h.analysisService.GetAnalysis(c.Request.Context(), currentUserID(c), datasetID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"dataset":  result.Dataset,
			"analysis": result.Report,
		})
	}
}

// HandleReport renders the narrative as a small HTML report.
func (h *DatasetHandler) HandleReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID, err := core.ParseDatasetID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
			return
		}

		result, err := h.analysisService.GetAnalysis(c.Request.Context(), currentUserID(c), datasetID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}

		var b strings.Builder
		fmt.Fprintf(&b, "<h1>%s</h1>\n", result.Dataset.Filename)
		fmt.Fprintf(&b, "<p>%d rows, %d columns</p>\n", result.Report.RowCount, result.Report.ColumnCount)
		b.Write(markdown.ToHTML([]byte(result.Report.InsightText()), nil, nil))

		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, b.String())
	}
}

// HandleDelete removes a dataset and its analysis.
func (h *DatasetHandler) HandleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		datasetID, err := core.ParseDatasetID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
			return
		}

		if err := h.analysisService.DeleteDataset(c.Request.Context(), currentUserID(c), datasetID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Dataset deleted successfully"})
	}
}
