// Package xapi реализует клиентскую часть WebSocket протокола брокера (xAPI):
//   - Командное соединение: запрос-ответ с корреляцией по customTag
//   - Потоковое соединение: подписки со счётчиком ссылок и фильтрами на стороне клиента
//   - Жизненный цикл сессии: login при подключении, ping по таймеру, logout при закрытии
//
// # Сессия
//
//	cfg := xapi.DemoConfig()
//	session, err := xapi.Dial(ctx, cfg, xapi.Credentials{UserID: "123", Password: "secret"})
//	if err != nil {
//	    return err
//	}
//	defer session.Close(ctx)
//
//	var version struct{ Version string `json:"version"` }
//	err = session.RequestTyped(ctx, "getVersion", nil, &version)
//
// # Подписки
//
// Несколько потребителей с одинаковыми (команда, аргументы) разделяют одну
// физическую подписку. Unsubscribe отправляется, когда закрывается последний.
//
//	ticks := xapi.StreamCommand{
//	    Subscribe:       "getTickPrices",
//	    Unsubscribe:     "stopTickPrices",
//	    Data:            "tickPrices",
//	    UnsubscribeKeys: []string{"symbol"},
//	}
//	stream, err := session.Subscribe(ctx, ticks, map[string]any{"symbol": "EURUSD"},
//	    xapi.ByField("symbol", "EURUSD"))
//	defer stream.Close()
//
// Кадр данных не содержит аргументов подписки, поэтому он доставляется всем
// подпискам с той же командой данных. Подписки на разные символы различает
// только фильтр потребителя: без ByField("symbol", ...) поток получит
// котировки всех символов.
//
//	for {
//	    msg, err := stream.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break // stream.Err() объясняет причину
//	    }
//	    ...
//	}
//
// # Фильтры
//
// All, None, ByCommand, ByField, Custom, AllOf, AnyOf и Expr (выражение
// expr-lang над переменными command и data). AllOf() без аргументов
// пропускает всё, AnyOf() без аргументов не пропускает ничего.
//
// # Протокол сообщений
//
// Командное соединение:
//
//	-> {"command": "getSymbol", "arguments": {"symbol": "EURUSD"}, "customTag": "..."}
//	<- {"status": true, "returnData": {...}, "customTag": "..."}
//	<- {"status": false, "errorCode": "BE005", "errorDescr": "...", "customTag": "..."}
//
// Потоковое соединение:
//
//	-> {"command": "getTickPrices", "streamSessionId": "...", "symbol": "EURUSD"}
//	<- {"command": "tickPrices", "data": {...}}
//	-> {"command": "stopTickPrices", "symbol": "EURUSD"}
package xapi
