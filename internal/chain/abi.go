package chain

// escrowABI - интерфейс escrow контракта, который использует сервис.
const escrowABI = `[
  {"type":"function","name":"createProject","stateMutability":"nonpayable",
   "inputs":[{"name":"buyer","type":"address"},{"name":"seller","type":"address"}],"outputs":[]},
  {"type":"function","name":"acceptProject","stateMutability":"nonpayable",
   "inputs":[{"name":"projectId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"addFunds","stateMutability":"payable",
   "inputs":[{"name":"projectId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"submitAsset","stateMutability":"nonpayable",
   "inputs":[{"name":"projectId","type":"uint256"},{"name":"assetLink","type":"string"},{"name":"instructions","type":"string"}],"outputs":[]},
  {"type":"function","name":"acceptAsset","stateMutability":"nonpayable",
   "inputs":[{"name":"projectId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"rejectAsset","stateMutability":"nonpayable",
   "inputs":[{"name":"projectId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getUserProjects","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"projectId","type":"uint256"},
     {"name":"buyer","type":"address"},
     {"name":"seller","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"status","type":"uint8"}]}]},
  {"type":"function","name":"getProjectsForApproval","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getAssetInfo","stateMutability":"view",
   "inputs":[{"name":"projectId","type":"uint256"}],
   "outputs":[{"name":"assetLink","type":"string"},{"name":"instructions","type":"string"}]},
  {"type":"event","name":"ProjectCreated","anonymous":false,
   "inputs":[{"name":"projectId","type":"uint256","indexed":true},
             {"name":"buyer","type":"address","indexed":true},
             {"name":"seller","type":"address","indexed":true}]}
]`

// Методы контракта.
const (
	methodCreateProject          = "createProject"
	methodAcceptProject          = "acceptProject"
	methodAddFunds               = "addFunds"
	methodSubmitAsset            = "submitAsset"
	methodAcceptAsset            = "acceptAsset"
	methodRejectAsset            = "rejectAsset"
	methodGetUserProjects        = "getUserProjects"
	methodGetProjectsForApproval = "getProjectsForApproval"
	methodGetAssetInfo           = "getAssetInfo"
	eventProjectCreated          = "ProjectCreated"
)
