package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"task-tracker/internal/dto"
	"task-tracker/internal/services"
	"task-tracker/pkg/utils"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

func (c *ReportController) GetTaskReport(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter, format := c.parseFilters(ctx)
	c.logger.Debug("Запрос на отчет по задачам", zap.Any("filters", filter), zap.String("format", format))

	data, total, err := c.reportService.GetTaskReport(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if format == "xlsx" {
		return c.respondWithXLSX(ctx, data)
	}
	return utils.SuccessResponse(ctx, data, "Отчет успешно сформирован", http.StatusOK, total)
}

func (c *ReportController) parseFilters(ctx echo.Context) (dto.TaskReportFilterDTO, string) {
	var filter dto.TaskReportFilterDTO
	format := strings.ToLower(ctx.QueryParam("format"))

	if df := ctx.QueryParam("date_from"); df != "" {
		if t, err := time.Parse(time.RFC3339, df); err == nil {
			filter.DateFrom = &t
		}
	}
	if dt := ctx.QueryParam("date_to"); dt != "" {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			filter.DateTo = &t
		}
	}

	if s := ctx.QueryParam("department_ids"); s != "" {
		ids, _ := utils.ParseUint64Slice(strings.Split(s, ","))
		filter.DepartmentIDs = ids
	}
	if s := ctx.QueryParam("statuses"); s != "" {
		filter.Statuses = strings.Split(s, ",")
	}
	return filter, format
}

var taskReportHeaders = []string{
	"№", "Название", "Статус", "Приоритет", "Срок", "Автор", "Департамент", "Родительская задача", "Создана",
}

func taskRowToSlice(item dto.TaskReportRowDTO) []interface{} {
	dateFmt := "02.01.2006"
	var deadline, creator, department, parent string
	if item.Deadline != nil {
		deadline = item.Deadline.Format(dateFmt)
	}
	if item.CreatorFio != nil {
		creator = *item.CreatorFio
	}
	if item.DepartmentName != nil {
		department = *item.DepartmentName
	}
	if item.ParentTitle != nil {
		parent = *item.ParentTitle
	}
	return []interface{}{
		item.ID, item.Title, item.Status, item.Priority, deadline,
		creator, department, parent, item.CreatedAt.Format(dateFmt + " 15:04"),
	}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, data []dto.TaskReportRowDTO) error {
	f := excelize.NewFile()
	sheet := "Отчет по задачам"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &taskReportHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "I1", style)

	for i, item := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := taskRowToSlice(item)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "B", 40)
	f.SetColWidth(sheet, "C", "E", 15)
	f.SetColWidth(sheet, "F", "H", 25)
	f.SetColWidth(sheet, "I", "I", 18)

	fileName := fmt.Sprintf("tasks_%s_%s.xlsx", time.Now().Format("2006-01-02"), uuid.New().String()[:8])
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
