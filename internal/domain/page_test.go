package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

func TestPaginationFromQuery(t *testing.T) {
	cases := []struct {
		name        string
		page, limit string
		want        domain.PaginationParams
	}{
		{"defaults", "", "", domain.PaginationParams{Page: 1, Limit: 10}},
		{"explicit", "3", "25", domain.PaginationParams{Page: 3, Limit: 25}},
		{"garbage", "abc", "-5", domain.PaginationParams{Page: 1, Limit: 10}},
		{"zero page", "0", "10", domain.PaginationParams{Page: 1, Limit: 10}},
		{"capped limit", "1", "5000", domain.PaginationParams{Page: 1, Limit: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.PaginationFromQuery(tc.page, tc.limit))
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	assert.Equal(t, 0, domain.PaginationParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, domain.PaginationParams{Page: 5, Limit: 10}.Offset())
}

func TestCompanion_FullName(t *testing.T) {
	c := domain.Companion{FirstName: "Ana", PaternalSurname: "Ruiz", MaternalSurname: "López"}
	assert.Equal(t, "Ana Ruiz López", c.FullName())

	c.MaternalSurname = ""
	assert.Equal(t, "Ana Ruiz", c.FullName())
}

func TestScheduleSlot_Available(t *testing.T) {
	s := domain.ScheduleSlot{CapacityTotal: 10, CapacityReserved: 7}
	assert.Equal(t, 3, s.Available())
}
