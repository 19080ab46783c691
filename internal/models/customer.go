package models

import (
	"strings"
	"time"
)

type CustomerInfo struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

func (c CustomerInfo) Trimmed() CustomerInfo {
	return CustomerInfo{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

type BillLine struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Amount `json:"unitPrice"`
	Total     Amount `json:"total"`
}

type Bill struct {
	Serial   string       `json:"serial"`
	Customer CustomerInfo `json:"customer"`
	Lines    []BillLine   `json:"lines"`
	Total    Amount       `json:"total"`
	IssuedAt time.Time    `json:"issuedAt"`
}

func NewBill(serial string, customer CustomerInfo, cart []CartItem, issuedAt time.Time) Bill {
	bill := Bill{
		Serial:   serial,
		Customer: customer,
		Lines:    make([]BillLine, 0, len(cart)),
		IssuedAt: issuedAt,
	}
	for i, item := range cart {
		line := BillLine{
			Index:     i + 1,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Total:     item.LineTotal(),
		}
		bill.Total += line.Total
		bill.Lines = append(bill.Lines, line)
	}
	return bill
}
