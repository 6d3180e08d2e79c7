package registry

// builtin lists the SDMX 2.1 REST services known to work with this package.
// Providers without dataflow support stay listed as excluded so that a
// lookup by id reports them instead of failing as unknown.
var builtin = []Provider{
	{ID: "ABS", Name: "Australian Bureau of Statistics", URL: "https://api.data.abs.gov.au", AgencyID: "ABS"},
	{ID: "ABS_JSON", Name: "Australian Bureau of Statistics (SDMX-JSON)", URL: "https://api.data.abs.gov.au", Excluded: true},
	{ID: "BBK", Name: "Deutsche Bundesbank", URL: "https://api.statistiken.bundesbank.de/rest", AgencyID: "BBK"},
	{ID: "BIS", Name: "Bank for International Settlements", URL: "https://stats.bis.org/api/v1", AgencyID: "BIS"},
	{ID: "ECB", Name: "European Central Bank", URL: "https://data-api.ecb.europa.eu/service", AgencyID: "ECB"},
	{ID: "ESTAT", Name: "Eurostat", URL: "https://ec.europa.eu/eurostat/api/dissemination/sdmx/2.1", AgencyID: "ESTAT"},
	{ID: "ILO", Name: "International Labor Organization", URL: "https://sdmx.ilo.org/rest", AgencyID: "ILO"},
	{ID: "IMF", Name: "International Monetary Fund", URL: "https://sdmxcentral.imf.org/ws/public/sdmxapi/rest", AgencyID: "IMF"},
	{ID: "INSEE", Name: "Institut national de la statistique et des études économiques", URL: "https://www.bdm.insee.fr/series/sdmx", AgencyID: "FR1"},
	{ID: "ISTAT", Name: "Instituto Nationale di Statistica", URL: "https://esploradati.istat.it/SDMXWS/rest", AgencyID: "IT1"},
	{ID: "LSD", Name: "Lithuanian Department of Statistics", URL: "https://osp-rs.stat.gov.lt/rest_xml", Excluded: true},
	{ID: "NB", Name: "Norges Bank", URL: "https://data.norges-bank.no/api", Excluded: true},
	{ID: "NBB", Name: "National Bank of Belgium", URL: "https://stat.nbb.be/restsdmx/sdmx.ashx", Excluded: true},
	{ID: "OECD", Name: "Organisation for Economic Co-operation and Development", URL: "https://sdmx.oecd.org/public/rest"},
	{ID: "OECD_JSON", Name: "Organisation for Economic Co-operation and Development (SDMX-JSON)", URL: "https://stats.oecd.org/SDMX-JSON", Excluded: true},
	{ID: "SGR", Name: "SDMX Global Registry", URL: "https://registry.sdmx.org/ws/public/sdmxapi/rest"},
	{ID: "SPC", Name: "Pacific Data Hub", URL: "https://stats-nsi-stable.pacificdata.org/rest", AgencyID: "SPC"},
	{ID: "STAT_EE", Name: "Statistics Estonia", URL: "https://andmebaas.stat.ee/restsdmx/sdmx.ashx", Excluded: true},
	{ID: "UNICEF", Name: "UN Children's Fund", URL: "https://sdmx.data.unicef.org/ws/public/sdmxapi/rest", AgencyID: "UNICEF"},
	{ID: "UNSD", Name: "United Nations Statistics Division", URL: "https://data.un.org/WS/rest", AgencyID: "UNSD"},
	{ID: "WB", Name: "World Bank World Integrated Trade Solution", URL: "https://wits.worldbank.org/API/V1/SDMX/V21/rest", AgencyID: "WBG_WITS"},
	{ID: "WB_WDI", Name: "World Bank World Development Indicators", URL: "https://api.worldbank.org/v2/sdmx/rest", AgencyID: "WB"},
}

// Default returns a new registry holding the built-in provider table.
func Default() *Registry {
	r := &Registry{providers: make(map[string]Provider, len(builtin))}
	for _, p := range builtin {
		r.providers[p.ID] = p
	}
	return r
}
