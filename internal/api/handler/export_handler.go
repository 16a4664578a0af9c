package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"campus-records/internal/dto"
	"campus-records/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export 导出账号列表（筛选条件同 List，忽略分页）
// GET /api/v1/accounts/export?role=teacher&status=active
func (h *AccountHandler) Export(c *gin.Context) {
	var req dto.AccountListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeBadRequest, "参数校验失败")
		return
	}

	buf, filename, err := h.accountSvc.Export(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	writeXLSX(c, buf, filename)
}

// writeXLSX 以附件形式下发 Excel 文件
func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
