package enums

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyVND Currency = "VND"
)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyVND:
		return true
	}
	return false
}
