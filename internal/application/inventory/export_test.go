package inventory

import "time"

// SetTransactionIDGenerator reemplaza el generador de transaction_id en pruebas.
func SetTransactionIDGenerator(uc *LedgerUseCase, gen func(ledgerType string, at time.Time) string) {
	uc.newTxID = gen
}
