package ports

import "github.com/ghalamif/streamwindow/internal/domain"

type Decoder interface {
	Decode(raw []byte) (domain.DataPoint, error)
}
