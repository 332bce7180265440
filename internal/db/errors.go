package db

import "errors"

var (
	// ErrSnapshotExists — снапшот периода уже снят; операция write-once.
	ErrSnapshotExists = errors.New("снапшот за этот период уже существует")
	// ErrAggregateMissing — агрегатной строки не оказалось там, где она
	// обязана быть. Это всегда баг, наружу уходит как internal error.
	ErrAggregateMissing = errors.New("агрегатная строка не найдена")
	// ErrDuplicateIdempotencyKey — повтор клиентского ключа идемпотентности.
	ErrDuplicateIdempotencyKey = errors.New("идемпотентный ключ уже использован")
	// ErrDisputeReviewed — по апелляции уже есть вердикт. Проверка живёт
	// внутри транзакции: два ревьюера не применят diff дважды.
	ErrDisputeReviewed = errors.New("апелляция уже рассмотрена")
)
