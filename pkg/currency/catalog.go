package currency

// Info describes a supported currency.
type Info struct {
	Code   string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Flag   string `json:"flag"`
}

var supported = []Info{
	{"USD", "US Dollar", "$", "🇺🇸"},
	{"EUR", "Euro", "€", "🇪🇺"},
	{"GBP", "British Pound", "£", "🇬🇧"},
	{"JPY", "Japanese Yen", "¥", "🇯🇵"},
	{"CHF", "Swiss Franc", "Fr", "🇨🇭"},
	{"AUD", "Australian Dollar", "A$", "🇦🇺"},
	{"CAD", "Canadian Dollar", "C$", "🇨🇦"},
	{"CNY", "Chinese Yuan", "¥", "🇨🇳"},
	{"NZD", "New Zealand Dollar", "NZ$", "🇳🇿"},
	{"HKD", "Hong Kong Dollar", "HK$", "🇭🇰"},
	{"SGD", "Singapore Dollar", "S$", "🇸🇬"},
	{"INR", "Indian Rupee", "₹", "🇮🇳"},
	{"IDR", "Indonesian Rupiah", "Rp", "🇮🇩"},
	{"KRW", "South Korean Won", "₩", "🇰🇷"},
	{"MYR", "Malaysian Ringgit", "RM", "🇲🇾"},
	{"PHP", "Philippine Peso", "₱", "🇵🇭"},
	{"THB", "Thai Baht", "฿", "🇹🇭"},
	{"VND", "Vietnamese Dong", "₫", "🇻🇳"},
	{"TWD", "Taiwan Dollar", "NT$", "🇹🇼"},
	{"PKR", "Pakistani Rupee", "₨", "🇵🇰"},
	{"BDT", "Bangladeshi Taka", "৳", "🇧🇩"},
	{"LKR", "Sri Lankan Rupee", "Rs", "🇱🇰"},
	{"MMK", "Myanmar Kyat", "K", "🇲🇲"},
	{"KHR", "Cambodian Riel", "៛", "🇰🇭"},
	{"LAK", "Lao Kip", "₭", "🇱🇦"},
	{"SEK", "Swedish Krona", "kr", "🇸🇪"},
	{"NOK", "Norwegian Krone", "kr", "🇳🇴"},
	{"DKK", "Danish Krone", "kr", "🇩🇰"},
	{"PLN", "Polish Złoty", "zł", "🇵🇱"},
	{"CZK", "Czech Koruna", "Kč", "🇨🇿"},
	{"HUF", "Hungarian Forint", "Ft", "🇭🇺"},
	{"RON", "Romanian Leu", "lei", "🇷🇴"},
	{"BGN", "Bulgarian Lev", "лв", "🇧🇬"},
	{"HRK", "Croatian Kuna", "kn", "🇭🇷"},
	{"ISK", "Icelandic Króna", "kr", "🇮🇸"},
	{"RSD", "Serbian Dinar", "дин", "🇷🇸"},
	{"ALL", "Albanian Lek", "L", "🇦🇱"},
	{"MKD", "Macedonian Denar", "ден", "🇲🇰"},
	{"MDL", "Moldovan Leu", "L", "🇲🇩"},
	{"BAM", "Bosnia-Herzegovina Mark", "KM", "🇧🇦"},
	{"AED", "UAE Dirham", "د.إ", "🇦🇪"},
	{"SAR", "Saudi Riyal", "﷼", "🇸🇦"},
	{"QAR", "Qatari Riyal", "ر.ق", "🇶🇦"},
	{"OMR", "Omani Rial", "ر.ع.", "🇴🇲"},
	{"BHD", "Bahraini Dinar", ".د.ب", "🇧🇭"},
	{"KWD", "Kuwaiti Dinar", "د.ك", "🇰🇼"},
	{"ILS", "Israeli New Shekel", "₪", "🇮🇱"},
	{"JOD", "Jordanian Dinar", "د.ا", "🇯🇴"},
	{"LBP", "Lebanese Pound", "ل.ل", "🇱🇧"},
	{"EGP", "Egyptian Pound", "ج.م", "🇪🇬"},
	{"IQD", "Iraqi Dinar", "ع.د", "🇮🇶"},
	{"IRR", "Iranian Rial", "﷼", "🇮🇷"},
	{"YER", "Yemeni Rial", "﷼", "🇾🇪"},
	{"ZAR", "South African Rand", "R", "🇿🇦"},
	{"NGN", "Nigerian Naira", "₦", "🇳🇬"},
	{"KES", "Kenyan Shilling", "KSh", "🇰🇪"},
	{"GHS", "Ghanaian Cedi", "₵", "🇬🇭"},
	{"UGX", "Ugandan Shilling", "USh", "🇺🇬"},
	{"TZS", "Tanzanian Shilling", "TSh", "🇹🇿"},
	{"ETB", "Ethiopian Birr", "Br", "🇪🇹"},
	{"MAD", "Moroccan Dirham", "د.م.", "🇲🇦"},
	{"DZD", "Algerian Dinar", "د.ج", "🇩🇿"},
	{"TND", "Tunisian Dinar", "د.ت", "🇹🇳"},
	{"ZMW", "Zambian Kwacha", "ZK", "🇿🇲"},
	{"RWF", "Rwandan Franc", "FRw", "🇷🇼"},
	{"MWK", "Malawian Kwacha", "MK", "🇲🇼"},
	{"MUR", "Mauritian Rupee", "₨", "🇲🇺"},
	{"NAD", "Namibian Dollar", "N$", "🇳🇦"},
	{"MXN", "Mexican Peso", "$", "🇲🇽"},
	{"BRL", "Brazilian Real", "R$", "🇧🇷"},
	{"ARS", "Argentine Peso", "$", "🇦🇷"},
	{"CLP", "Chilean Peso", "$", "🇨🇱"},
	{"COP", "Colombian Peso", "$", "🇨🇴"},
	{"PEN", "Peruvian Sol", "S/", "🇵🇪"},
	{"UYU", "Uruguayan Peso", "$U", "🇺🇾"},
	{"BOB", "Bolivian Boliviano", "Bs.", "🇧🇴"},
	{"PYG", "Paraguayan Guarani", "₲", "🇵🇾"},
	{"VES", "Venezuelan Bolívar", "Bs.", "🇻🇪"},
	{"CRC", "Costa Rican Colón", "₡", "🇨🇷"},
	{"GTQ", "Guatemalan Quetzal", "Q", "🇬🇹"},
	{"DOP", "Dominican Peso", "RD$", "🇩🇴"},
	{"HNL", "Honduran Lempira", "L", "🇭🇳"},
	{"NIO", "Nicaraguan Córdoba", "C$", "🇳🇮"},
	{"FJD", "Fiji Dollar", "FJ$", "🇫🇯"},
	{"PGK", "Papua New Guinean Kina", "K", "🇵🇬"},
	{"SBD", "Solomon Islands Dollar", "SI$", "🇸🇧"},
	{"TOP", "Tongan Paʻanga", "T$", "🇹🇴"},
	{"VUV", "Vanuatu Vatu", "VT", "🇻🇺"},
	{"WST", "Samoan Tala", "WS$", "🇼🇸"},
}
