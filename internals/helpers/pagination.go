package helper

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type PageParams struct {
	Page    int
	PerPage int
}

func (p PageParams) Offset() int { return (p.Page - 1) * p.PerPage }

// ParsePage membaca ?page= & ?per_page= dengan batas atas untuk ledger ops.
func ParsePage(c *fiber.Ctx, defaultPerPage, maxPerPage int) PageParams {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	per, _ := strconv.Atoi(c.Query("per_page", strconv.Itoa(defaultPerPage)))
	if per < 1 {
		per = defaultPerPage
	}
	if per > maxPerPage {
		per = maxPerPage
	}
	return PageParams{Page: page, PerPage: per}
}
