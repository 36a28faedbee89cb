package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/xuri/excelize/v2"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
)

func sampleRows() []ledger.Row {
	day := time.Date(2020, 2, 7, 0, 0, 0, 0, time.UTC)
	return []ledger.Row{
		{Date: day.AddDate(0, 0, -1), MeterID: "m1", Inhabitants: 2},
		{
			Date:                          day,
			MeterID:                       "m1",
			Consumption:                   2.1749714,
			ConsumptionCumulated:          2.1749714,
			Inhabitants:                   2,
			PerCapitaConsumption:          1.0874857,
			PerCapitaConsumptionCumulated: 1.0874857,
			Days:                          1,
			MovingAverage:                 1.0874857,
			MovingAverageAnnualized:       397,
		},
	}
}

func TestBuildLedgerXLSX(t *testing.T) {
	data, err := BuildLedgerXLSX("m1", sampleRows())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("ledger", "B1"); v != "m1" {
		t.Fatalf("meter cell: %q", v)
	}
	if v, _ := f.GetCellValue("ledger", "A5"); v != "2020-02-07" {
		t.Fatalf("date cell: %q", v)
	}
	if v, _ := f.GetCellValue("ledger", "I5"); v != "397" {
		t.Fatalf("annualized cell: %q", v)
	}
}

func TestBuildLedgerPDF(t *testing.T) {
	data, err := BuildLedgerPDF("m1", sampleRows())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf header")
	}
}

func TestKafkaPublisher_PublishRow(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var view ledger.PerCapitaView
		if err := json.Unmarshal(value, &view); err != nil {
			return err
		}
		if view.MeterID != "m1" || view.MovingAverageAnnualized != 397 {
			t.Errorf("unexpected payload: %s", value)
		}
		return nil
	})

	publisher, err := NewKafkaPublisher(producer, "ledger-rows")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := publisher.PublishRow(context.Background(), sampleRows()[1]); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLoggingPublisher(log.New(&buf, "", 0))
	if err := publisher.PublishRow(context.Background(), sampleRows()[1]); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), "meter=m1 day=2020-02-07") {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}
