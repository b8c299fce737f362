// Package errs содержит сентинельные ошибки доменного слоя. Сервисы
// оборачивают их через fmt.Errorf("%s: %w", ...), а HTTP-обработчики
// транслируют в статус-коды через errors.Is.
package errs

import "errors"

var (
	// ErrNotFound — запрошенная сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrPlanNotFound — план не существует или деактивирован.
	ErrPlanNotFound = errors.New("plan not found or inactive")
	// ErrConflict — операция нарушает инвариант уникальности,
	// например вторую активную подписку у одного пользователя.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState — переход недопустим из текущего статуса сущности.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInvalidAmount — сумма операции вне допустимых границ.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrForbidden — действующему пользователю не хватает прав.
	ErrForbidden = errors.New("access denied")
	// ErrChargeInFlight — по этой подписке уже выполняется списание.
	ErrChargeInFlight = errors.New("charge already in progress")

	// ErrUserExists — пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrUserInactive — учетная запись деактивирована.
	ErrUserInactive = errors.New("user account is deactivated")
	// ErrInvalidCredentials — пара email/пароль не подошла. Причина
	// (нет пользователя или неверный пароль) намеренно не раскрывается.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken — токен не прошел разбор или проверку подписи.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истек.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked — токен отозван до истечения срока действия.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrGatewayDeclined — платежный процессор отклонил операцию.
	ErrGatewayDeclined = errors.New("payment gateway declined the operation")
	// ErrGatewayUnavailable — ответ процессора не получен до дедлайна;
	// исход операции неизвестен.
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")
)
