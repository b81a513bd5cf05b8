package portal

// Element locators for the RemoteIoT portal UI.
const (
	xpathUsername = "//input[@type='text']"
	xpathPassword = "//input[@type='password']"

	dashboardSelector = "#dashboard-menu"

	xpathDeviceMenu   = "/html/body/div[1]/div/div[2]/div/div[2]/div/div/div/div[1]/div/div[1]/div/div/div[2]/div/div[5]/div"
	xpathDeviceExport = "/html/body/div[2]/div[2]/div/div/span[14]/span"

	xpathBatchJobsMenu = "//*[@id='dashboard-menu']/div/div[4]/div[3]/span/span[2]"
	xpathJobsDropdown  = "//*[@id='portal-982480788']/div/div[2]/div/div[2]/div/div/div/div[1]/div/div/div[2]/div/div[5]/div/span"
	xpathNewJob        = "//*[@id='portal-982480788-overlays']/div[2]/div/div/span[1]/span"

	wizardForm           = "/html/body/div[2]/div[3]/div/div/div[3]/div/div/div[1]/div/table/tbody"
	xpathJobName         = wizardForm + "/tr[1]/td[3]/input"
	xpathDeviceSearch    = wizardForm + "/tr[5]/td[3]/div/div/div[3]/div/div[1]/div/input"
	xpathSearchIcon      = wizardForm + "/tr[5]/td[3]/div/div/div[3]/div/div[1]/div/div/span"
	xpathAvailableList   = wizardForm + "/tr[5]/td[3]/div/div/div[1]/div/select[1]"
	xpathAddSelected     = wizardForm + "/tr[5]/td[3]/div/div/div[1]/div/div[2]/div[1]"
	xpathSelectedList    = wizardForm + "/tr[5]/td[3]/div/div/div[1]/div/select[2]"
	xpathExecuteScript   = wizardForm + "/tr[7]/td[3]/div/span[1]/label"
	xpathScriptField     = wizardForm + "/tr[8]/td[3]/div/div/div/div/input"
	xpathCommandField    = wizardForm + "/tr[8]/td[3]/textarea"
	xpathMaximizeWizard  = "/html/body/div[2]/div[3]/div/div/div[2]/div[1]"
	xpathSubmitJob       = "/html/body/div[2]/div[3]/div/div/div[3]/div/div/div[3]/div/div/div/div/div[3]/div"
	xpathJobsMenu        = "/html/body/div[1]/div/div[2]/div/div[2]/div/div/div/div[1]/div/div/div[2]/div/div[5]/div"
	xpathJobsTableExport = "/html/body/div[2]/div[2]/div/div/span[5]"
)
