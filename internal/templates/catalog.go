package templates

// amountPattern is the shared ETB amount grammar: thousands-separated or
// plain digits with an optional decimal part.
const amountPattern = `((?:\d{1,3}(?:,\d{3})*|\d+)(?:\.\d+)?)`

// Catalog returns the built-in institution templates in priority order.
// Each call returns a fresh copy.
func Catalog() []Template {
	return []Template{
		{
			Name:    "CBE",
			Senders: []string{"cbe", "commercial bank of ethiopia"},
			BodyPatterns: []string{
				`Current Balance is ETB`,
				`has been credited with ETB`,
				`has been debited with ETB`,
				`You have transfered ETB`,
			},
			Tag: "CBE",
			Fields: []FieldRule{
				{Name: FieldAmount, Patterns: []string{
					`You have transfer(?:ed|red) ETB\s*` + amountPattern,
					`credited with ETB\s*` + amountPattern,
					`debited with ETB\s*` + amountPattern,
				}},
				{Name: FieldAccount, Patterns: []string{`account\s*([0-9*-]+)`}},
				{Name: FieldBalance, Patterns: []string{
					`Current Balance is ETB\s*` + amountPattern,
					`Your Current Balance is ETB\s*` + amountPattern,
				}},
				{Name: FieldTransactionID, Patterns: []string{
					`id=([A-Za-z0-9-&=]+)`,
					`Ref No\s*([A-Z0-9]+)`,
				}},
			},
		},
		{
			Name:         "Telebirr",
			Senders:      []string{"127", "telebirr", "ethio telecom"},
			BodyPatterns: []string{`telebirr`, `telebirr transaction`},
			Tag:          "Telebirr",
			Fields: []FieldRule{
				{Name: FieldAmount, Patterns: []string{`ETB\s*` + amountPattern}},
				{Name: FieldAccount, Patterns: []string{`Account\s*([0-9*-]+)`, `Account\s*([0-9*]+)`}},
				{Name: FieldTransactionID, Patterns: []string{`transaction number is\s*([A-Z0-9-]+)`}},
			},
		},
		{
			Name:    "BOA",
			Senders: []string{"bankofabyssinia", "boa", "bank of abyssinia", "8397"},
			BodyPatterns: []string{
				`Bank of Abyssinia`,
				`your account .* was (?:credited|debited)`,
			},
			Tag: "BOA",
			Fields: []FieldRule{
				{Name: FieldAmount, Patterns: []string{
					`was (?:credited|debited) with ETB\s*` + amountPattern,
					`has been (?:credited|debited) with ETB\s*` + amountPattern,
				}},
				{Name: FieldAccount, Patterns: []string{`account\s*([0-9*-]+)`}},
				{Name: FieldTransactionID, Patterns: []string{`trx=([A-Z0-9]+)`}},
			},
		},
		{
			Name:         "Dashen",
			Senders:      []string{"dashen", "dashen super app", "dashenbank"},
			BodyPatterns: []string{`Dashen`, `Dashen Super App`},
			Tag:          "Dashen",
			Fields: []FieldRule{
				{Name: FieldAmount, Patterns: []string{
					`ETB\s*` + amountPattern,
					`is credited with ETB\s*` + amountPattern,
					`has been debited with ETB\s*` + amountPattern,
				}},
				{Name: FieldAccount, Patterns: []string{`account\s*["']?([0-9*-]+)["']?`}},
				{Name: FieldTransactionID, Patterns: []string{`receipt/([A-Za-z0-9/-=]+)`}},
			},
		},
		{
			Name:         "Bunna",
			Senders:      []string{"bunna", "bunna bank"},
			BodyPatterns: []string{`Bunna Bank`, `Withdrawal of`, `Deposit of`},
			Tag:          "Bunna",
			Fields: []FieldRule{
				{Name: FieldAmount, Patterns: []string{
					`Withdrawal of\s*` + amountPattern + `\s*ETB`,
					`A Withdrawal of\s*` + amountPattern + `\s*ETB`,
					`A Deposit of\s*` + amountPattern + `\s*ETB`,
					`has been debited with ETB\s*` + amountPattern,
				}},
				{Name: FieldAccount, Patterns: []string{`account\s*([0-9*-]+)`}},
				{Name: FieldTransactionID, Patterns: []string{`receipt.*trx=([A-Z0-9]+)`}},
			},
		},
	}
}
