package model

import (
	"time"

	"github.com/google/uuid"
)

// FacturaElectronica stores the signed e-CF and its submission trail.
// XMLCanonico is kept so signing can be audited/retried; the DGII raw
// response is preserved verbatim for dispute resolution.
type FacturaElectronica struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	ECFTipo     string `gorm:"type:varchar(2);not null"`
	XMLCanonico string `gorm:"type:text"`
	XMLFirmado  string `gorm:"type:text"`
	FechaFirma  *time.Time

	TrackID        string `gorm:"type:varchar(50);index"`
	EstadoDGII     string `gorm:"type:varchar(20)"`
	MensajeDGII    string
	RespuestaCruda string `gorm:"type:text"`
	QRData         string
	PDFPath        *string

	// Retry fields — used by the retry cron to re-submit CONTINGENCIA documents
	RetryCount  int `gorm:"not null;default:0"`
	NextRetryAt *time.Time
	LastError   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FacturaElectronica) TableName() string { return "facturas_electronicas" }
