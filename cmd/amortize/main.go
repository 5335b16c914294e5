package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iwvelando/calculator-hub/internal/config"
	"github.com/iwvelando/calculator-hub/internal/logging"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/iwvelando/calculator-hub/pkg/currency"
	"github.com/iwvelando/calculator-hub/pkg/mortgage"
	"github.com/iwvelando/calculator-hub/pkg/output"
	"github.com/iwvelando/calculator-hub/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	principal := flag.Float64("principal", 0, "home price")
	rate := flag.Float64("rate", 0, "annual interest rate in percent, e.g. 6.5")
	years := flag.Int("years", 30, "loan term in years")
	down := flag.Float64("down-payment", 0, "down payment")
	tax := flag.Float64("property-tax", 0, "annual property tax")
	insurance := flag.Float64("insurance", 0, "annual homeowners insurance")
	outputFormat := flag.String("output-format", constants.OutputFormatPretty, "type of output: pretty, csv, json, xlsx, pdf")
	code := flag.String("currency", "USD", "ISO currency code amounts are printed in")
	locale := flag.String("locale", constants.DefaultLocale, "locale used to format amounts")
	outPath := flag.String("out", "", "file to write the schedule to (required for xlsx and pdf)")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(config.LoggingConfig{Format: "console"}, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := validation.ValidateOutputFormat(*outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}
	if validation.IsBinaryFormat(*outputFormat) && *outPath == "" {
		logger.Fatal("an output file is required for binary formats",
			zap.String("op", "main"),
			zap.String("format", *outputFormat),
		)
	}

	*code = strings.ToUpper(strings.TrimSpace(*code))
	if !currency.IsSupported(*code) {
		logger.Fatal("unsupported currency",
			zap.String("op", "main"),
			zap.String("currency", *code),
		)
	}
	money := output.Money{Locale: *locale, Code: *code, Symbol: currency.Symbol(*code)}

	result, err := mortgage.Compute(mortgage.LoanRequest{
		Principal:                 *principal,
		AnnualInterestRatePercent: *rate,
		TermYears:                 *years,
		DownPayment:               *down,
		AnnualPropertyTax:         *tax,
		AnnualInsurance:           *insurance,
	})
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			logger.Fatal("invalid loan parameters",
				zap.String("op", "main"),
				zap.String("field", verr.Field),
				zap.String("reason", verr.Reason),
			)
		}
		logger.Fatal("failed to compute amortization schedule",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var w io.Writer = os.Stdout
	var file *os.File
	if *outPath != "" {
		file, err = os.Create(*outPath)
		if err != nil {
			logger.Fatal("failed to create output file",
				zap.String("op", "main"),
				zap.String("path", *outPath),
				zap.Error(err),
			)
		}
		w = file
	}

	switch *outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(w, result, money)
	case constants.OutputFormatCSV:
		output.CsvFormat(w, result, money)
	case constants.OutputFormatJSON:
		err = output.JSON(w, result)
	case constants.OutputFormatXLSX:
		err = output.XLSX(w, result, money)
	case constants.OutputFormatPDF:
		err = output.PDF(w, result, money)
	}
	if err != nil {
		logger.Fatal("failed to write schedule",
			zap.String("op", "main"),
			zap.String("format", *outputFormat),
			zap.Error(err),
		)
	}
	if file != nil {
		if err := file.Close(); err != nil {
			logger.Fatal("failed to close output file",
				zap.String("op", "main"),
				zap.String("path", *outPath),
				zap.Error(err),
			)
		}
	}

	logger.Debug("amortization schedule written",
		zap.String("op", "main"),
		zap.Int("payments", result.PaymentCount),
		zap.Float64("monthlyPayment", result.MonthlyPayment),
	)
}
