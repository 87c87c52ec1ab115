package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

var ErrDecode = errors.New("failed to decode stream data")

var errorCodes = map[string]string{
	"BE000": "Internal error, in case of such error, please contact support",
	"BE001": "Invalid price",
	"BE002": "Invalid StopLoss or TakeProfit",
	"BE003": "Invalid volume",
	"BE004": "Login disabled",
	"BE005": "userPasswordCheck: Invalid login or password",
	"BE006": "Market for instrument is closed",
	"BE007": "Mismatched parameters",
	"BE008": "Modification is denied",
	"BE009": "Not enough money on account to perform trade",
	"BE010": "Off quotes",
	"BE011": "Opposite positions prohibited",
	"BE012": "Short positions prohibited",
	"BE013": "Price has changed",
	"BE014": "Request too frequent",
	"BE016": "Too many trade requests",
	"BE017": "Too many trade requests",
	"BE018": "Trading on instrument disabled",
	"BE019": "Trading timeout",
	"BE094": "Symbol does not exist for given account",
	"BE095": "Account cannot trade on given symbol",
	"BE096": "Pending order cannot be closed. Pending order must be deleted",
	"BE097": "Cannot close already closed order",
	"BE098": "No such transaction",
	"BE101": "Unknown instrument symbol",
	"BE102": "Unknown transaction type",
	"BE103": "User is not logged",
	"BE104": "Method does not exist",
	"BE105": "Incorrect period given",
	"BE106": "Missing data",
	"BE110": "Incorrect command format",
	"BE115": "Symbol does not exist",
	"BE116": "Symbol does not exist",
	"BE117": "Invalid token",
	"BE118": "User already logged",
	"BE200": "Session timed out",
	"EX000": "Invalid parameters",
	"EX001": "Internal error, in case of such error, please contact support",
	"EX002": "Internal error, in case of such error, please contact support",
	"EX003": "Internal error, request timed out",
	"EX004": "Login credentials are incorrect or this login is not allowed to use an application with this appId",
	"EX005": "Internal error, system overloaded",
	"EX006": "No access",
	"EX007": "userPasswordCheck: Invalid login or password. This login/password is disabled for 10 minutes",
	"EX008": "You have reached the connection limit",
	"EX009": "Data limit potentially exceeded. Please narrow your request range",
	"EX010": "Your login is on the black list, perhaps due to previous misuse",
	"EX011": "You are not allowed to execute this command",
}

// Describe возвращает описание кода ошибки брокера. BE020-BE037 и BE099 -
// "Other error".
func Describe(code string) string {
	if d, ok := errorCodes[code]; ok {
		return d
	}

	if n, ok := otherErrorNumber(code); ok && (n >= 20 && n <= 37 || n == 99) {
		return "Other error"
	}

	return "Unknown error code " + code
}

// DescribeError возвращает "", если err не ошибка брокера.
func DescribeError(err error) string {
	be, ok := xapi.IsBrokerError(err)
	if !ok {
		return ""
	}

	return Describe(be.Code)
}

func otherErrorNumber(code string) (int, bool) {
	if !strings.HasPrefix(code, "BE") || len(code) != 5 {
		return 0, false
	}

	n, err := strconv.Atoi(code[2:])
	if err != nil {
		return 0, false
	}

	return n, true
}
